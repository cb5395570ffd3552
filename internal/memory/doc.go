// Package memory keeps preview generation inside its container memory limit.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from MEMORY_LIMIT (the container limit
// in bytes, typically from the Kubernetes Downward API) and MEMORY_RATIO
// (default 0.80). An explicit GOMEMLIMIT always wins.
//
// A [Gate] samples the heap and closes once usage crosses PauseAt of the
// limit, reopening below ResumeAt. The media processor waits on it before
// decoding, so a batch of large images slows down instead of being
// OOM-killed.
//
// Kubernetes example:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
package memory
