package generic

import (
	"fmt"

	"github.com/rs/zerolog"
)

// =============================================================================
// WARNINGS - Non-fatal conditions surfaced alongside results
// =============================================================================

type WarningCode string

const (
	WarnMissingColumn       WarningCode = "missing_column"
	WarnNoOverlap           WarningCode = "no_overlap"
	WarnCashflowFailed      WarningCode = "cashflow_failed"
	WarnRealizationMismatch WarningCode = "realization_mismatch"
	WarnIRRNotFound         WarningCode = "irr_not_found"
)

// Warning records a condition that degraded output without aborting it.
type Warning struct {
	Code    WarningCode `json:"code" msgpack:"code"`
	Period  string      `json:"period,omitempty" msgpack:"period"`
	Param   string      `json:"param,omitempty" msgpack:"param"`
	Message string      `json:"message" msgpack:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// warnings collects Warnings and mirrors each to a logger.
type warnings struct {
	log  zerolog.Logger
	list []Warning
}

func (ws *warnings) add(w Warning) {
	ws.list = append(ws.list, w)
	ws.log.Warn().
		Str("code", string(w.Code)).
		Str("period", w.Period).
		Str("param", w.Param).
		Msg(w.Message)
}

func (ws *warnings) reset() { ws.list = nil }

func (ws *warnings) all() []Warning { return append([]Warning(nil), ws.list...) }
