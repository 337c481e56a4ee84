package mode

// CycleOrder is the fixed order the mode-cycle key walks through.
var CycleOrder = []Mode{ModeNormal, ModeAuto, ModePlan, ModeArchitect, ModeYolo}

// Configs holds the static per-mode configuration.
var Configs = map[Mode]Config{
	ModePlan: {
		Indicator:   "📋 PLAN",
		Description: "Read-only exploration: propose changes, never make them",
		AutoApprove: false,
		ReadOnly:    true,
	},
	ModeNormal: {
		Indicator:   "✋ NORMAL",
		Description: "Every tool call asks for confirmation",
		AutoApprove: false,
		ReadOnly:    false,
	},
	ModeAuto: {
		Indicator:   "⚡ AUTO",
		Description: "Tool calls run without confirmation",
		AutoApprove: true,
		ReadOnly:    false,
	},
	ModeYolo: {
		Indicator:   "🚀 YOLO",
		Description: "Everything runs, nothing asks. You asked for it",
		AutoApprove: true,
		ReadOnly:    false,
	},
	ModeArchitect: {
		Indicator:   "🏛 ARCHITECT",
		Description: "Read-only, big-picture design discussion",
		AutoApprove: false,
		ReadOnly:    true,
	},
}

// promptModifiers are the per-mode system prompt injections.
var promptModifiers = map[Mode]string{
	ModePlan: "<mode>You are in PLAN mode. Do not modify any files. " +
		"Investigate, then produce an implementation plan the user can approve.</mode>",
	ModeNormal: "<mode>You are in NORMAL mode. Each tool call is individually " +
		"confirmed by the user, so batch related work where sensible.</mode>",
	ModeAuto: "<mode>You are in AUTO mode. Tool calls run without confirmation; " +
		"be conservative with destructive operations.</mode>",
	ModeYolo: "<mode>You are in YOLO mode. All tools are pre-approved.</mode>",
	ModeArchitect: "<mode>You are in ARCHITECT mode. Do not modify files. Focus " +
		"on structure, interfaces and tradeoffs rather than line-level detail.</mode>",
}

// maxHistory bounds the transition history kept in memory.
const maxHistory = 50

// readOnlyTools may run without confirmation in read-only modes.
var readOnlyTools = map[string]bool{
	"read_file":      true,
	"list_directory": true,
}

// writeTools always count as write operations, regardless of arguments.
var writeTools = map[string]bool{
	"write_file":  true,
	"edit_file":   true,
	"delete_file": true,
	"move_file":   true,
	"create_file": true,
}
