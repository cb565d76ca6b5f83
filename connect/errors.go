package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/emersion/go-smtp-connect"
)

// Stage tells in which part of the establishment a connection failed.
type Stage int

const (
	// StageIo is a transport failure at any point.
	StageIo Stage = iota
	// StageSetup is a negative reply to the greeting, EHLO or STARTTLS.
	StageSetup
	// StageAuth is a negative reply to the auth command.
	StageAuth
)

func (s Stage) String() string {
	switch s {
	case StageIo:
		return "io"
	case StageSetup:
		return "setup"
	case StageAuth:
		return "auth"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// EstablishmentError is returned by Connect and the connect primitives.
// Whatever the stage, the transport has been closed.
//
// A StageAuth error is either a server rejection of the auth command or a
// failure of the SASL mechanism itself: Start failed before AUTH was sent,
// or Next failed and the exchange was cancelled with "*". Only the former
// carries a *smtp.LogicError.
type EstablishmentError struct {
	Stage Stage
	Err   error
}

func (err *EstablishmentError) Error() string {
	return fmt.Sprintf("smtp: connecting failed (%s): %v", err.Stage, err.Err)
}

func (err *EstablishmentError) Unwrap() error {
	return err.Err
}

// Logic returns the server rejection behind a setup or auth failure. It is
// nil for StageIo, for a SASL mechanism failure and for a config without
// Security.
func (err *EstablishmentError) Logic() *smtp.LogicError {
	var logicErr *smtp.LogicError
	if errors.As(err.Err, &logicErr) {
		return logicErr
	}
	return nil
}

// StageOf returns the stage of the EstablishmentError in err's chain.
func StageOf(err error) (Stage, bool) {
	var estErr *EstablishmentError
	if errors.As(err, &estErr) {
		return estErr.Stage, true
	}
	return 0, false
}

// classify turns the outcome of a command sent during establishment into the
// outcome of the establishment step.
//
// A nil connection means the transport failed and is gone. Otherwise the
// command failed at the protocol level: at the auth stage the session is
// ended with QUIT before the transport is shut down, at the setup stage the
// transport is only shut down.
func classify(ctx context.Context, c *smtp.Conn, err error, stage Stage) (*smtp.Conn, error) {
	if err == nil {
		return c, nil
	}
	if c == nil {
		return nil, &EstablishmentError{Stage: StageIo, Err: err}
	}

	logger := c.Logger().WithField("stage", stage.String())
	logger.WithError(err).Debug("establishment rejected")

	if stage == StageAuth {
		if quitErr := c.Quit(ctx); quitErr != nil {
			logger.WithError(quitErr).Debug("QUIT after failed auth")
		}
	} else {
		c.Shutdown()
	}
	return nil, &EstablishmentError{Stage: stage, Err: err}
}
