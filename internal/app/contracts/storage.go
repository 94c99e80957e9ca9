package contracts

import "context"

// DiagnosticsArchive persists raw model output and failed-session payloads
// for operator investigation.
type DiagnosticsArchive interface {
	ArchivePhaseOutput(ctx context.Context, sessionID, phase string, raw []byte) error
	ArchiveFailedSession(ctx context.Context, sessionID string, payload []byte) error
}
