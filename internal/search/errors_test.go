package search

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected ErrorClass
	}{
		{403, ClassAuth},
		{429, ClassRateLimit},
		{400, ClassClient},
		{401, ClassClient},
		{404, ClassClient},
		{500, ClassServer},
		{502, ClassServer},
		{503, ClassServer},
		{302, ClassClient},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyStatus(tt.code))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(ClassServer))
	assert.True(t, shouldRetry(ClassRateLimit))
	assert.True(t, shouldRetry(ClassNetwork))
	assert.False(t, shouldRetry(ClassAuth))
	assert.False(t, shouldRetry(ClassClient))
	assert.False(t, shouldRetry(ClassDecode))
	assert.False(t, shouldRetry(""))
}

func TestFetchError_IsAuth(t *testing.T) {
	authErr := &FetchError{Page: 1, StatusCode: 403, Class: ClassAuth, Message: "403 Forbidden"}
	assert.ErrorIs(t, authErr, ErrAuth)
	assert.ErrorIs(t, fmt.Errorf("collect: %w", authErr), ErrAuth)

	serverErr := &FetchError{Page: 2, StatusCode: 500, Class: ClassServer, Message: "500 Internal Server Error"}
	assert.False(t, errors.Is(serverErr, ErrAuth))
}

func TestFetchError_Error(t *testing.T) {
	err := &FetchError{Page: 3, StatusCode: 500, Class: ClassServer, Message: "500 Internal Server Error"}
	assert.Equal(t, "page 3: server error (status 500): 500 Internal Server Error", err.Error())

	cause := errors.New("connection refused")
	wrapped := &FetchError{Page: 1, Class: ClassNetwork, Message: "request failed", Err: cause}
	assert.Equal(t, "page 1: network error (status 0): request failed: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(&FetchError{Class: ClassServer}))
	assert.True(t, IsRecoverable(&FetchError{Class: ClassClient}))
	assert.True(t, IsRecoverable(&FetchError{Class: ClassDecode}))
	assert.False(t, IsRecoverable(&FetchError{Class: ClassAuth}))
	assert.False(t, IsRecoverable(errors.New("plain")))
}
