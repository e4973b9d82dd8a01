package obs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimeLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := l.WithContext(WithRequestID(context.Background(), "abc"))

	func() {
		var err error
		defer Time(ctx, "distance.resolve")(&err)
		err = errors.New("boom")
	}()

	out := buf.String()
	assert.Contains(t, out, `"op":"distance.resolve"`)
	assert.Contains(t, out, `"req_id":"abc"`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestTimeWithoutLoggerIsSilent(t *testing.T) {
	assert.NotPanics(t, func() {
		Time(context.Background(), "noop")(nil)
	})
	assert.Equal(t, "", RequestID(context.Background()))
}
