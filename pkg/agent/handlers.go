package agent

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/action"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/ipc"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scanjob"
)

// registerHandlers binds every IPC command (other than Hello, which the
// server handles internally) to the component that owns it.
func (a *Agent) registerHandlers() {
	a.ipcServer.Handle(ipc.CommandPing, a.handlePing)
	a.ipcServer.Handle(ipc.CommandStartScan, a.handleStartScan)
	a.ipcServer.Handle(ipc.CommandStopScan, a.handleStopScan)
	a.ipcServer.Handle(ipc.CommandGetScanProgress, a.handleGetScanProgress)
	a.ipcServer.Handle(ipc.CommandListQuarantine, a.handleListQuarantine)
	a.ipcServer.Handle(ipc.CommandRestoreFromQuarantine, a.handleRestoreFromQuarantine)
	a.ipcServer.Handle(ipc.CommandDeleteFromQuarantine, a.handleDeleteFromQuarantine)
	a.ipcServer.Handle(ipc.CommandGetPendingThreats, a.handleGetPendingThreats)
	a.ipcServer.Handle(ipc.CommandResolveThreat, a.handleResolveThreat)
	a.ipcServer.Handle(ipc.CommandEnableRealTime, a.handleEnableRealTime)
	a.ipcServer.Handle(ipc.CommandDisableRealTime, a.handleDisableRealTime)
	a.ipcServer.Handle(ipc.CommandUpdateSettings, a.handleUpdateSettings)
	a.ipcServer.Handle(ipc.CommandGetStatus, a.handleGetStatus)
}

func (a *Agent) handlePing(context.Context, json.RawMessage) (interface{}, error) {
	return "Pong", nil
}

func (a *Agent) handleStartScan(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var request ipc.StartScanRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, errors.Wrap(err, "malformed StartScan payload")
	}
	if len(request.Roots) == 0 {
		return nil, errors.New("StartScan requires at least one root")
	}
	jobID := a.controller.StartScan(ctx, request.Roots, request.Recursive)
	return ipc.StartScanResponse{JobID: jobID}, nil
}

func (a *Agent) handleStopScan(_ context.Context, payload json.RawMessage) (interface{}, error) {
	var request ipc.JobRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, errors.Wrap(err, "malformed StopScan payload")
	}
	a.controller.Cancel(request.JobID)
	return nil, nil
}

func (a *Agent) handleGetScanProgress(_ context.Context, payload json.RawMessage) (interface{}, error) {
	var request ipc.JobRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, errors.Wrap(err, "malformed GetScanProgress payload")
	}
	progress, ok := a.controller.GetProgress(request.JobID)
	if !ok {
		return nil, errors.Errorf("unknown job %q", request.JobID)
	}
	return scanProgressDTO(progress), nil
}

func scanProgressDTO(p scanjob.Progress) ipc.ScanProgressResponse {
	return ipc.ScanProgressResponse{
		JobID:     p.JobID,
		Status:    string(p.Status),
		Total:     p.Total,
		Scanned:   p.Scanned,
		Threats:   p.Threats,
		Errors:    p.Errors,
		StartedAt: p.StartedAt,
	}
}

func (a *Agent) handleListQuarantine(context.Context, json.RawMessage) (interface{}, error) {
	entries := a.quarantineStore.List()
	dto := make([]ipc.QuarantineEntryDTO, len(entries))
	for i, entry := range entries {
		dto[i] = ipc.QuarantineEntryDTO{
			ID:            entry.ID,
			OriginalPath:  entry.OriginalPath,
			SHA256:        entry.SHA256,
			Size:          entry.Size,
			ThreatName:    entry.ThreatName,
			QuarantinedAt: entry.QuarantinedAt,
		}
	}
	return ipc.ListQuarantineResponse{Entries: dto}, nil
}

func (a *Agent) handleRestoreFromQuarantine(_ context.Context, payload json.RawMessage) (interface{}, error) {
	var request ipc.QuarantineIDRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, errors.Wrap(err, "malformed RestoreFromQuarantine payload")
	}
	if err := a.quarantineStore.Restore(request.ID, request.Destination); err != nil {
		return nil, err
	}
	return nil, nil
}

func (a *Agent) handleDeleteFromQuarantine(_ context.Context, payload json.RawMessage) (interface{}, error) {
	var request ipc.QuarantineIDRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, errors.Wrap(err, "malformed DeleteFromQuarantine payload")
	}
	if err := a.quarantineStore.Delete(request.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (a *Agent) handleGetPendingThreats(context.Context, json.RawMessage) (interface{}, error) {
	tickets := a.executor.ListPending()
	dto := make([]ipc.PendingThreatDTO, len(tickets))
	for i, ticket := range tickets {
		dto[i] = ipc.PendingThreatDTO{
			EventID:   ticket.EventID,
			Path:      ticket.Path,
			Score:     ticket.Result.RiskScore,
			Verdict:   string(ticket.Result.Verdict),
			Timestamp: ticket.Timestamp,
		}
	}
	return ipc.PendingThreatsResponse{Threats: dto}, nil
}

func (a *Agent) handleResolveThreat(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var request ipc.ResolveThreatRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, errors.Wrap(err, "malformed ResolveThreat payload")
	}
	response := a.executor.Resolve(ctx, request.EventID, action.ResolveAction(request.Action), request.AddToExclusions)
	if !response.Success {
		return nil, errors.New(response.Error)
	}
	return nil, nil
}

func (a *Agent) handleEnableRealTime(context.Context, json.RawMessage) (interface{}, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()
	a.cfg.EnableRealTimeProtection = true
	return nil, a.monitor.Start()
}

func (a *Agent) handleDisableRealTime(context.Context, json.RawMessage) (interface{}, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()
	a.cfg.EnableRealTimeProtection = false
	a.monitor.Stop()
	return nil, nil
}

func (a *Agent) handleUpdateSettings(_ context.Context, payload json.RawMessage) (interface{}, error) {
	var request ipc.UpdateSettingsRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, errors.Wrap(err, "malformed UpdateSettings payload")
	}

	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	if request.ActionMode != nil {
		mode := action.Mode(*request.ActionMode)
		switch mode {
		case action.AutoQuarantine, action.AutoBlock, action.AskUser:
			a.cfg.ActionMode = mode
		default:
			return nil, errors.Errorf("unrecognized action_mode %q", *request.ActionMode)
		}
	}
	if request.AskMinScore != nil {
		a.cfg.AskMinScore = *request.AskMinScore
	}
	if request.AutoQuarantineMinScore != nil {
		a.cfg.AutoQuarantineMinScore = *request.AutoQuarantineMinScore
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	a.executor.UpdatePolicy(a.cfg.ActionPolicy())

	if request.EnableRealTimeProtection != nil {
		a.cfg.EnableRealTimeProtection = *request.EnableRealTimeProtection
		if a.cfg.EnableRealTimeProtection {
			if err := a.monitor.Start(); err != nil {
				return nil, err
			}
		} else {
			a.monitor.Stop()
		}
	}

	return nil, nil
}

func (a *Agent) handleGetStatus(context.Context, json.RawMessage) (interface{}, error) {
	a.settingsMu.Lock()
	enabled := a.cfg.EnableRealTimeProtection
	a.settingsMu.Unlock()

	return ipc.GetStatusResponse{
		UptimeSeconds:            a.monitor.Stats.Uptime().Seconds(),
		EventsSeen:               a.monitor.Stats.EventsSeen(),
		ThreatsBlocked:           a.monitor.Stats.ThreatsBlocked(),
		FilesQuarantined:         a.monitor.Stats.FilesQuarantined(),
		ScanErrors:               a.monitor.Stats.ScanErrors(),
		EnableRealTimeProtection: enabled,
		PendingThreats:           a.executor.PendingCount(),
		ConnectedSessions:        a.ipcServer.SessionCount(),
	}, nil
}
