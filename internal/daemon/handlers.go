package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// handleRequest dispatches the request to the appropriate handler. The
// returned func, if any, runs after the response is written.
func (d *Daemon) handleRequest(_ context.Context, req *Request) (Response, func()) {
	if d.controller == nil {
		return Response{Error: "no controller available"}, nil
	}
	ctrl := d.controller

	switch req.Method {
	case MethodGetState:
		return Response{Result: ctrl.GetState()}, nil
	case MethodStartWork:
		return Response{Result: ctrl.StartWork()}, nil
	case MethodStartBreak:
		return Response{Result: ctrl.StartBreak()}, nil
	case MethodStop:
		return Response{Result: ctrl.Stop()}, nil
	case MethodPause:
		return Response{Result: ctrl.Pause()}, nil
	case MethodResume:
		return Response{Result: ctrl.Resume()}, nil
	case MethodExtend:
		return d.handleExtend(req), nil
	case MethodSaveSettings:
		return d.handleSaveSettings(req), nil
	case MethodStatus:
		return d.handleStatus(), nil
	case MethodQuit:
		return d.handleQuit()
	default:
		return Response{Error: fmt.Sprintf("unknown method: %s", req.Method)}, nil
	}
}

func (d *Daemon) handleExtend(req *Request) Response {
	var params ExtendParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Result: d.controller.Extend(params.Seconds)}
}

func (d *Daemon) handleSaveSettings(req *Request) Response {
	var params SaveSettingsParams
	if err := decodeParams(req.Params, &params); err != nil {
		return Response{Error: err.Error()}
	}
	if len(params.Settings) == 0 {
		return Response{Error: "invalid params: settings is required"}
	}
	snap, err := d.controller.SaveSettings(params.Settings)
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Result: snap}
}

// handleStatus returns the current daemon status.
func (d *Daemon) handleStatus() Response {
	snap := d.controller.GetState()

	d.mu.RLock()
	startTime := d.startTime
	d.mu.RUnlock()

	return Response{
		Result: StatusResponse{
			Phase:            string(snap.State.Phase()),
			IsBreak:          snap.State.Timer.IsBreak,
			RemainingSeconds: snap.State.Timer.RemainingSeconds,
			PID:              os.Getpid(),
			Uptime:           time.Since(startTime).Truncate(time.Second).String(),
			StartTime:        startTime.Format(time.RFC3339),
		},
	}
}

// handleQuit replies first, then shuts the daemon down.
func (d *Daemon) handleQuit() (Response, func()) {
	d.mu.RLock()
	onQuit := d.onQuit
	d.mu.RUnlock()

	d.logger.Info("quit requested")
	return Response{Result: "quitting"}, func() {
		if onQuit != nil {
			onQuit()
			return
		}
		_ = d.Stop()
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("invalid params: missing")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
