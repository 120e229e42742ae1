package dltrouter

import (
	"errors"
	"testing"

	"github.com/ehrlich-b/dlt-router/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestErrorFormatsWithAndWithoutOp(t *testing.T) {
	withOp := NewError("dcp.Listen", ErrCodeSocket, "bind failed")
	assert.NotEmpty(t, withOp.Error())

	noOp := &Error{Code: ErrCodeSocket, Msg: "bind failed"}
	assert.NotEqual(t, withOp.Error(), noOp.Error())
}

func TestErrorDefaultsMessageToCode(t *testing.T) {
	e := &Error{Code: ErrCodeWireProtocol}
	assert.NotEmpty(t, e.Error())
}

func TestWrapErrorNilIsNil(t *testing.T) {
	assert.Nil(t, WrapError("op", ErrCodeSocket, nil))
}

func TestWrapErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	wrapped := WrapError("op", ErrCodeSocket, inner)
	assert.ErrorIs(t, wrapped, inner)
}

func TestErrorIsComparesByCode(t *testing.T) {
	a := NewError("op1", ErrCodeQueueFull, "full")
	b := NewError("op2", ErrCodeQueueFull, "also full")
	assert.ErrorIs(t, a, b)
	assert.False(t, errors.Is(a, ErrCodeSocket))
	assert.True(t, errors.Is(a, ErrCodeQueueFull))
}

func TestIsCode(t *testing.T) {
	err := NewError("op", ErrCodeHandshake, "mismatch")
	assert.True(t, IsCode(err, ErrCodeHandshake))
	assert.False(t, IsCode(err, ErrCodeSocket))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeHandshake))
}

func TestIsCodeFindsWrappedError(t *testing.T) {
	inner := NewError("inner-op", ErrCodeQueueInvalidSize, "too big")
	outer := WrapError("outer-op", ErrCodeWireProtocol, inner)
	assert.True(t, IsCode(outer, ErrCodeWireProtocol))
}

func TestWrapConfigErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{config.ErrNoFile, ErrCodeConfigNoFile},
		{config.ErrNoChannels, ErrCodeConfigNoChannels},
		{config.ErrParse, ErrCodeConfigParse},
	}
	for _, c := range cases {
		got := WrapConfigError("config.Load", c.err)
		assert.True(t, IsCode(got, c.code), "expected %v to map to %v, got %v", c.err, c.code, got.Code)
	}
}

func TestWrapConfigErrorNilIsNil(t *testing.T) {
	assert.Nil(t, WrapConfigError("op", nil))
}

func TestWrapConfigErrorUnknownFallsBackToParse(t *testing.T) {
	got := WrapConfigError("op", errors.New("some other failure"))
	assert.True(t, IsCode(got, ErrCodeConfigParse))
}
