package protocol

// RPC method name constants for UI ↔ background requests (spec §6.3),
// organized by the same priority-tiered constant-table convention the
// daemon's fabric has always used.

// Chat / agent lifecycle, per tab.
const (
	MethodChatMessage  = "CHAT_MESSAGE"
	MethodStopAgent    = "STOP_AGENT"
	MethodClearHistory = "CLEAR_HISTORY"
	MethodGetHistory   = "GET_HISTORY"
)

// Plan/execute mode lifecycle, per tab.
const (
	MethodSetMode     = "SET_MODE"
	MethodGetMode     = "GET_MODE"
	MethodApprovePlan = "APPROVE_PLAN"
	MethodRejectPlan  = "REJECT_PLAN"
)

// VFS file management, per tab.
const (
	MethodGetVFSFiles           = "GET_VFS_FILES"
	MethodDeleteVFSFile         = "DELETE_VFS_FILE"
	MethodToggleVFSFileEnabled  = "TOGGLE_VFS_FILE_ENABLED"
	MethodSetAllVFSFilesEnabled = "SET_ALL_VFS_FILES_ENABLED"
)

// Page interaction.
const (
	MethodCaptureScreenshot   = "CAPTURE_SCREENSHOT"
	MethodExecuteInMainWorld = "EXECUTE_IN_MAIN_WORLD"
)

// System.
const (
	MethodConnect = "connect"
	MethodHealth  = "health"
)
