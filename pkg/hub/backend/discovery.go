package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/agenthub-dev/agenthub/go/pkg/hub/errors"
)

// AgentCardPath is the well-known location of the agent self-descriptor
// document served by every backend.
const AgentCardPath = "/.well-known/agent.json"

// AgentCard is the self-descriptor document a backend serves from its
// resolved address. Only the fields needed for kind detection are modeled.
type AgentCard struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	URL          string         `json:"url,omitempty"`
	Version      string         `json:"version,omitempty"`
	Provider     *AgentProvider `json:"provider,omitempty"`
	Capabilities AgentCardCaps  `json:"capabilities"`
}

// AgentProvider identifies the organization behind a backend.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentCardCaps mirrors the capability flags advertised on the card.
type AgentCardCaps struct {
	Streaming              *bool `json:"streaming,omitempty"`
	PushNotifications      *bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory *bool `json:"stateTransitionHistory,omitempty"`
}

// KindFromCard maps an agent card to a backend Kind by inspecting the
// provider organization and agent name for known substrings. Unmatched cards
// map to KindGeneric.
func KindFromCard(card *AgentCard) Kind {
	if card == nil {
		return KindGeneric
	}
	hint := card.Name
	if card.Provider != nil {
		hint = card.Provider.Organization + " " + hint
	}
	hint = strings.ToLower(hint)

	switch {
	case strings.Contains(hint, "google"):
		return KindGemini
	case strings.Contains(hint, "openai"):
		return KindCodex
	case strings.Contains(hint, "anthropic"):
		return KindClaude
	default:
		return KindGeneric
	}
}

// Detector fetches agent cards and resolves backend kinds. Lookup results are
// cached per resolved address; the cache is dropped by Forget when an
// adapter's connection goes away.
type Detector struct {
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]Kind
}

// NewDetector creates a Detector with a bounded request timeout.
func NewDetector() *Detector {
	return &Detector{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string]Kind),
	}
}

// DetectKind fetches the agent card from baseURL and maps it to a Kind.
func (d *Detector) DetectKind(ctx context.Context, baseURL string) (Kind, error) {
	d.mu.Lock()
	if kind, ok := d.cache[baseURL]; ok {
		d.mu.Unlock()
		return kind, nil
	}
	d.mu.Unlock()

	card, err := d.FetchCard(ctx, baseURL)
	if err != nil {
		return KindGeneric, err
	}

	kind := KindFromCard(card)
	d.mu.Lock()
	d.cache[baseURL] = kind
	d.mu.Unlock()
	return kind, nil
}

// FetchCard retrieves and decodes the agent card served at baseURL.
func (d *Detector) FetchCard(ctx context.Context, baseURL string) (*AgentCard, error) {
	url := strings.TrimSuffix(baseURL, "/") + AgentCardPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeDiscoveryFailed, "failed to create request", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeDiscoveryFailed, "failed to fetch agent card", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.New(apperrors.ErrCodeDiscoveryFailed,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeDiscoveryFailed, "failed to decode agent card", err)
	}

	return &card, nil
}

// Forget drops the cached kind for an address. Called on disconnect so a
// restarted backend on the same port is re-detected.
func (d *Detector) Forget(baseURL string) {
	d.mu.Lock()
	delete(d.cache, baseURL)
	d.mu.Unlock()
}
