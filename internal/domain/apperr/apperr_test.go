package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	sentinel := New(Conflict, "already there")

	tests := []struct {
		name string
		err  error
		want Kind
		msg  string
	}{
		{name: "plain error", err: errors.New("boom"), want: Internal, msg: "internal error"},
		{name: "sentinel", err: sentinel, want: Conflict, msg: "already there"},
		{name: "wrapped sentinel", err: errors.Wrap(sentinel, "create"), want: Conflict, msg: "already there"},
		{name: "formatted", err: Errorf(Validation, "quantity %d", -1), want: Validation, msg: "quantity -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.Equal(t, tt.msg, Message(tt.err))
		})
	}
}

func TestWrappedSentinelIdentity(t *testing.T) {
	sentinel := New(NotFound, "gone")
	other := New(NotFound, "gone")

	err := errors.Wrap(sentinel, "lookup")
	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, other)
	assert.Equal(t, "not_found", KindOf(err).String())
}
