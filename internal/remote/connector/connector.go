// Package connector implements the service-side remote agent: it
// dials the broker's socket, reads fixed-layout decision requests, and
// answers them using a local agent chain plus a confinement-label
// resolver and description template.
package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/trustbrokerd/trustbroker/internal/agent"
	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/metrics"
	"github.com/trustbrokerd/trustbroker/internal/remote"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
	"github.com/trustbrokerd/trustbroker/internal/trusterr"
	"github.com/trustbrokerd/trustbroker/internal/wire"
)

// LabelResolver resolves the requesting application's confinement label
// (e.g. an AppArmor profile) to an application_id.
type LabelResolver func(pid request.PID) (request.ApplicationID, error)

// Connector dials the broker's socket at construction and serves decision
// requests off it until Close or context cancellation.
type Connector struct {
	conn              net.Conn
	chain             agent.Agent
	resolveLabel      LabelResolver
	startTime         remote.StartTimeResolver
	descriptionFormat string
}

// Config parameterizes New.
type Config struct {
	SocketPath        string
	Chain             agent.Agent
	ResolveLabel      LabelResolver
	StartTime         remote.StartTimeResolver
	DescriptionFormat string
}

// New dials cfg.SocketPath immediately, failing fast if the broker is
// unreachable, and validates cfg.DescriptionFormat's %1$s placeholder
// once up front rather than on every request.
func New(cfg Config) (*Connector, error) {
	if err := ValidateDescriptionFormat(cfg.DescriptionFormat); err != nil {
		return nil, err
	}
	if cfg.StartTime == nil {
		cfg.StartTime = remote.ProcessStartTime
	}

	conn, err := net.Dial("unix", cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing broker at %s: %v", trusterr.ErrConfiguration, cfg.SocketPath, err)
	}

	return &Connector{
		conn:              conn,
		chain:             cfg.Chain,
		resolveLabel:      cfg.ResolveLabel,
		startTime:         cfg.StartTime,
		descriptionFormat: cfg.DescriptionFormat,
	}, nil
}

// ValidateDescriptionFormat rejects a template with no %1$s substitution
// or a malformed verb, validated once at startup so a bad pattern fails
// loudly instead of on every request.
func ValidateDescriptionFormat(format string) error {
	if !strings.Contains(format, "%1$s") {
		return fmt.Errorf("%w: description-pattern %q has no %%1$s placeholder", trusterr.ErrConfiguration, format)
	}
	if strings.Contains(strings.ReplaceAll(format, "%1$s", ""), "%") {
		return fmt.Errorf("%w: description-pattern %q has a placeholder other than %%1$s", trusterr.ErrConfiguration, format)
	}
	return nil
}

// Close closes the underlying connection, unblocking any outstanding read.
func (c *Connector) Close() error {
	return c.conn.Close()
}

// Serve loops reading request records and answering them until ctx is
// cancelled or the connection is lost. Cancellation of the outstanding
// read is mandatory: a goroutine watching ctx closes the connection so
// the blocked read unblocks instead of hanging past shutdown.
func (c *Connector) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()

	for {
		if err := c.serveOne(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (c *Connector) serveOne(ctx context.Context) error {
	req, err := wire.DecodeRequest(c.conn)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartTransportSpan(ctx, "request",
		telemetry.UID(uint32(req.AppUID)), telemetry.PID(int32(req.AppPID)))
	defer span.End()

	answer := request.Denied

	currentStart, err := c.startTime(req.AppPID)
	if err != nil || currentStart != req.AppStartTime {
		telemetry.RecordError(ctx, trusterr.ErrSpoofingDetected)
		metrics.RecordRemoteError("spoofing_detected")
		logger.WarnCtx(ctx, "spoofing detected", logger.PID(int32(req.AppPID)))
		return wire.Answer(answer).Encode(c.conn)
	}

	appID, err := c.resolveLabel(req.AppPID)
	if err != nil {
		logger.WarnCtx(ctx, "failed to resolve confinement label", logger.Err(err))
		return wire.Answer(answer).Encode(c.conn)
	}

	params := request.Parameters{
		UID:           req.AppUID,
		PID:           req.AppPID,
		Feature:       req.Feature,
		ApplicationID: appID,
		Description:   strings.ReplaceAll(c.descriptionFormat, "%1$s", string(appID)),
	}

	granted, authErr := c.chain.Authenticate(ctx, params)
	if authErr != nil {
		logger.WarnCtx(ctx, "authenticate failed", logger.Err(authErr))
		granted = request.Denied
	}

	return wire.Answer(granted).Encode(c.conn)
}
