// Package backend defines the closed set of coding-assistant backends the hub
// can talk to, their static capability descriptors, and agent card discovery.
package backend

// Kind identifies one of the supported backend families. The set is closed:
// normalizer and adapter behavior is selected by Kind, never by subclassing.
type Kind string

const (
	KindGemini  Kind = "gemini"
	KindCodex   Kind = "codex"
	KindClaude  Kind = "claude"
	KindGeneric Kind = "generic"
)

// Capabilities describes what a backend supports. Capability sets are static
// per adapter so the UI can gate actions without a runtime round trip.
type Capabilities struct {
	Streaming         bool     `json:"streaming"`
	PushNotifications bool     `json:"push_notifications"`
	OrderedHistory    bool     `json:"ordered_history"`
	ToolAllowlist     []string `json:"tool_allowlist,omitempty"`
}

// Descriptor is the immutable static description of one backend adapter,
// defined at startup.
type Descriptor struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	Kind         Kind         `json:"kind"`
	Capabilities Capabilities `json:"capabilities"`
}
