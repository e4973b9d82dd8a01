package main

import (
	"github.com/spf13/cobra"

	"freight-dispatch-service/internal/api/dto"
	"freight-dispatch-service/internal/app"
	"freight-dispatch-service/internal/services"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the persistent distance cache tables and optionally seed them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			ctx := log.WithContext(cmd.Context())

			stores, err := app.OpenStores(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := stores.Migrate(ctx); err != nil {
				return err
			}
			log.Info().Str("backend", cfg.Store.Backend).Msg("schema ready")

			if seedPath == "" {
				seedPath = cfg.Store.SeedPath
			}
			if seedPath == "" {
				return nil
			}
			n, err := stores.Seed(ctx, seedPath)
			if err != nil {
				return err
			}
			log.Info().Int("pairs", n).Str("path", seedPath).Msg("seeding complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "JSON file of precomputed distances (default store.seed_path)")
	return cmd
}

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	var evaluate bool
	cmd := &cobra.Command{
		Use:   "routes <request.json|->",
		Short: "Enumerate qualifying single-vehicle routes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				defaults := app.Defaults(a.Config.Planning)
				ctx := a.Log.WithContext(cmd.Context())

				if evaluate {
					var req dto.EvaluateRouteRequest
					if err := readRequest(args[0], &req); err != nil {
						return err
					}
					ev, err := a.Dispatcher.EvaluateRoute(ctx, services.EvaluateRequest{
						Loads:              dto.LoadsToDomain(req.Loads),
						Start:              req.StartLocation,
						End:                req.EndLocation,
						LoadIDs:            req.LoadIDs,
						LoadedPctThreshold: pick(req.LoadedPctThreshold, defaults.LoadedPctThreshold),
					})
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), dto.NewEvaluateRouteResponse(ev))
				}

				var req dto.RoutesRequest
				if err := readRequest(args[0], &req); err != nil {
					return err
				}
				plan, err := a.Dispatcher.PlanRoutes(ctx, services.RoutePlanRequest{
					Loads:              dto.LoadsToDomain(req.Loads),
					Start:              req.StartLocation,
					End:                req.EndLocation,
					LoadedPctThreshold: pick(req.LoadedPctThreshold, defaults.LoadedPctThreshold),
					MaxChainLength:     pick(req.MaxChainLength, defaults.MaxChainLength),
					MaxNodes:           pick(req.MaxSearchNodes, defaults.MaxSearchNodes),
					Limit:              req.Limit,
					SearchTimeout:      defaults.SearchTimeout,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.NewRoutesResponse(plan))
			})
		},
	}
	cmd.Flags().BoolVar(&evaluate, "evaluate", false, "score the load_ids order in the request instead of searching")
	return cmd
}

func newAssignCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <request.json|->",
		Short: "Pack loads across a fleet of drivers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req dto.AssignmentsRequest
			if err := readRequest(args[0], &req); err != nil {
				return err
			}
			from, err := dto.ParseDate("schedule_from", req.ScheduleFrom)
			if err != nil {
				return err
			}

			return opts.withApp(cmd.Context(), func(a *app.App) error {
				defaults := app.Defaults(a.Config.Planning)
				strategy := req.Strategy
				if strategy == "" {
					strategy = defaults.Strategy
				}
				plan, err := a.Dispatcher.AssignFleet(a.Log.WithContext(cmd.Context()), services.FleetRequest{
					Loads:           dto.LoadsToDomain(req.Loads),
					Base:            req.BaseLocation,
					Drivers:         dto.DriversToSeeds(req.Drivers),
					HardHourCap:     pick(req.HardHourCap, defaults.HardHourCap),
					WarningHourCap:  pick(req.WarningHourCap, defaults.WarningHourCap),
					AverageSpeedKmh: pick(req.AverageSpeedKmh, defaults.AverageSpeedKmh),
					LoadUnloadHours: pick(req.LoadUnloadHours, defaults.LoadUnloadHours),
					MaxDrivers:      pick(req.MaxDrivers, defaults.MaxDrivers),
					Strategy:        strategy,
					ScheduleFrom:    from,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.NewAssignmentsResponse(plan))
			})
		},
	}
}

// newHOSCmd runs the simulator alone; it needs no distance provider.
func newHOSCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hos <request.json|->",
		Short: "Lay a driver's plan out over calendar days under HOS limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			var req dto.ScheduleRequest
			if err := readRequest(args[0], &req); err != nil {
				return err
			}
			sim, err := req.ToService()
			if err != nil {
				return err
			}

			res, err := services.NewHOSSimulator(app.HOSOptions(cfg.HOS), log).Simulate(log.WithContext(cmd.Context()), sim)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.NewScheduleResponse(res))
		},
	}
}

func pick[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
