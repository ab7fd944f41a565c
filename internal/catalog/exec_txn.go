package catalog

// transactionCommands declares MULTI/EXEC/DISCARD for arity/lookup
// purposes only; the connection FSM (internal/session) intercepts them
// before Exec would ever run, since they mutate per-connection queuing
// state that this package has no access to.
func transactionCommands() []*Command {
	return []*Command{
		{Name: "MULTI", MinArgs: 0, MaxArgs: 0, IsTransactionControl: true},
		{Name: "EXEC", MinArgs: 0, MaxArgs: 0, IsTransactionControl: true},
		{Name: "DISCARD", MinArgs: 0, MaxArgs: 0, IsTransactionControl: true},
	}
}
