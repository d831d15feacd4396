package agent

import (
	"github.com/trustbrokerd/trustbroker/internal/store"
)

// ChainConfig parameterizes NewProductionChain.
type ChainConfig struct {
	// WhitelistPredicate decides which requests bypass the rest of the
	// chain. Nil defaults to Unconfined.
	WhitelistPredicate Predicate

	// CurrentUID returns the broker process's effective uid, queried on
	// every call so it can be varied by tests or made dynamic by a
	// hot-reloadable config.
	CurrentUID UIDProvider

	// Store backs CachedAgent.
	Store *store.Store

	// Clock overrides the wallclock used to stamp new cache entries.
	// Nil defaults to SystemClock.
	Clock Clock

	// Prompt is the terminal agent consulted on a cache miss — normally
	// a *prompt.PromptAgent, injected here to avoid an import cycle
	// between internal/agent and internal/prompt.
	Prompt Agent
}

// NewProductionChain builds the canonical chain, outermost first:
// AppIDFormatter, Whitelist, PrivilegeEscalationGuard, CachedAgent, then
// cfg.Prompt as the terminal agent.
func NewProductionChain(cfg ChainConfig) Agent {
	if cfg.Prompt == nil {
		panic("agent: NewProductionChain requires a non-nil terminal Prompt agent")
	}

	chain := Agent(NewCachedAgent(cfg.Prompt, cfg.Store, cfg.Clock))
	chain = NewPrivilegeEscalationGuard(chain, cfg.CurrentUID)
	chain = NewWhitelist(chain, cfg.WhitelistPredicate)
	chain = NewAppIDFormatter(chain)
	return chain
}
