package store

import (
	"fmt"

	"rankgate/pkg/platform/sentinel"
)

const activePairConstraint = "private_chat_sessions_active_pair_key"

// ErrActivePairExists rejects a second ACTIVE session for the same unordered
// member pair.
var ErrActivePairExists = fmt.Errorf("%w: active chat session already exists for member pair", sentinel.ErrAlreadyUsed)
