package main

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStopOnSignal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	stopped := make(chan struct{})
	returned := make(chan struct{})

	go func() {
		stopOnSignal(sigCh, done, func() { close(stopped) })
		close(returned)
	}()
	sigCh <- syscall.SIGINT

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("stopOnSignal did not return after a signal")
	}
	select {
	case <-stopped:
	default:
		t.Fatal("stop was not called")
	}
}

func TestStopOnSignalReturnsWhenDone(t *testing.T) {
	done := make(chan struct{})
	returned := make(chan struct{})
	calls := 0

	go func() {
		stopOnSignal(make(chan os.Signal), done, func() { calls++ })
		close(returned)
	}()
	close(done)

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("stopOnSignal leaked after done closed")
	}
	assert.Zero(t, calls)
}
