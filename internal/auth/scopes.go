package auth

// ScopeRosterWrite allows signing participants up and unregistering them.
const ScopeRosterWrite = "roster:write"
