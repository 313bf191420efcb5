// Package allocctx attributes heap allocations to logical call contexts.
//
// Every goroutine owns a tracker made of a bounded pseudo-stack of trace
// frames and a key/value overlay. The tracing layer pushes and pops frames
// at scope boundaries; the allocator hook snapshots the tracker on every
// intercepted allocation while capture is enabled.
//
// # Quick Start
//
//	func main() {
//		allocctx.Init(allocctx.DefaultOptions())
//		defer allocctx.Fini()
//
//		allocctx.SetCaptureEnabled(true)
//		handle()
//	}
//
//	func handle() {
//		defer allocctx.Enter("handle").End()
//		allocctx.SetContextField("component", "decoder")
//
//		buf := make([]byte, 4096)
//		if allocctx.CaptureEnabled() {
//			record(buf, allocctx.GetContext())
//		}
//	}
//
// # API Overview
//
// The package provides functions for:
//   - Initialization and finalization: [Init], [InitFromEnv], [Fini]
//   - The capture flag: [SetCaptureEnabled], [CaptureEnabled]
//   - Instrumentation: [PushPseudoStackFrame], [PopPseudoStackFrame],
//     [Enter], [SetContextField], [UnsetContextField]
//   - Snapshots: [GetContext]
//   - Goroutine teardown: [Go], [Release], [Sweep]
//   - Version information: [GetInfo], [Version]
//
// # Goroutines
//
// Trackers are keyed by goroutine ID and are created on first use. Go has
// no goroutine exit hook: start goroutines with [Go], call [Release] before
// a goroutine returns, or rely on the periodic sweep that reclaims trackers
// of exited goroutines.
//
// # Performance Characteristics
//
//	CaptureEnabled (disabled):  ~0.5ns, one load and a branch
//	Push / Pop:                 < 10ns, no allocation
//	GetContext:                 < 100ns for a 10-20 frame stack
//
// Build with -tags allocctxdebug to turn pseudo-stack overflow and
// mismatched pops into panics.
package allocctx
