package main

import (
	"errors"

	"github.com/nemanja-m/enhancify/internal/coordinator/core"
	"github.com/nemanja-m/enhancify/internal/coordinator/pool"
	"github.com/nemanja-m/enhancify/internal/coordinator/service"
	"github.com/nemanja-m/enhancify/internal/shared/config"
)

const (
	exitOK = iota
	exitUsage
	exitNoOptions
	exitHelp
	exitNoInput
	exitConflictingInput
	exitUnsupported
	exitNotFound
)

const (
	exitEmptyBatch = iota + 11
	exitLaunchFailed
	exitAllJobsFailed
	exitRuntime
)

var exitCodes = []struct {
	err  error
	code int
}{
	{config.ErrHelp, exitHelp},
	{config.ErrNoOptions, exitNoOptions},
	{config.ErrUsage, exitUsage},
	{config.ErrNoInput, exitNoInput},
	{config.ErrConflictingInput, exitConflictingInput},
	{core.ErrUnsupported, exitUnsupported},
	{core.ErrNotFound, exitNotFound},
	{core.ErrEmptyBatch, exitEmptyBatch},
	{pool.ErrLaunchFailed, exitLaunchFailed},
	{service.ErrAllJobsFailed, exitAllJobsFailed},
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	for _, candidate := range exitCodes {
		if errors.Is(err, candidate.err) {
			return candidate.code
		}
	}
	return exitRuntime
}
