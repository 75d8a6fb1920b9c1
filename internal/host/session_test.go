// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regform-scan/internal/dom"
	"regform-scan/internal/resilience"
)

func TestDecodeRect(t *testing.T) {
	r, err := decodeRect([]byte(`{"found":true,"top":120,"left":8,"width":300,"height":24}`))
	require.NoError(t, err)
	assert.Equal(t, &dom.Rect{Top: 120, Left: 8, Width: 300, Height: 24}, r)

	r, err = decodeRect([]byte(`{"found":false}`))
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = decodeRect([]byte(`not json`))
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{ExecPath: "/opt/chrome"}.withDefaults()
	assert.Equal(t, 30*time.Second, o.NavigationTimeout)
	assert.Equal(t, int64(1280), o.ViewportWidth)
	assert.Equal(t, int64(900), o.ViewportHeight)
	assert.Equal(t, 500*time.Millisecond, o.PollInterval)
	assert.Equal(t, "/opt/chrome", o.ExecPath)

	assert.Len(t, allocatorOptions(o), 6)
	o.UserAgent = "regform-scan"
	assert.Len(t, allocatorOptions(o), 7)
}

func TestClosedSessionRejectsCalls(t *testing.T) {
	s := &Session{closed: true, opts: Options{}.withDefaults()}

	_, err := s.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClosed))

	var classified *resilience.ClassifiedError
	require.True(t, errors.As(err, &classified))
	assert.False(t, classified.IsRetryable())
}

func TestRectNeedsHostReference(t *testing.T) {
	s := &Session{opts: Options{}.withDefaults()}
	_, err := s.Rect(context.Background(), dom.NewElement("input", nil))

	var classified *resilience.ClassifiedError
	require.True(t, errors.As(err, &classified))
	assert.Equal(t, resilience.ErrorTypeInvalidInput, classified.Type)
}
