// Package workflow runs one conversation turn through the recommendation
// pipeline.
package workflow

import "fmt"

// State is a node of the turn state machine.
type State string

const (
	StateStart       State = "start"
	StateClassifying State = "classifying"
	StateRetrieving  State = "retrieving"
	StateReasoning   State = "reasoning"
	StateEnriching   State = "enriching"
	StateValidating  State = "validating"
	StateDone        State = "done"
)

// Condition is the outcome of a state that selects the outgoing edge.
type Condition string

const (
	CondAlways         Condition = "always"
	CondCasualChat     Condition = "casual_chat"
	CondAskBudget      Condition = "ask_budget"
	CondBuyRequest     Condition = "buy_request"
	CondRevisionNeeded Condition = "revision_needed"
	CondAccepted       Condition = "accepted"
)

type edge struct {
	from State
	on   Condition
}

// transitions is the complete edge set of the turn graph.
var transitions = map[edge]State{
	{StateStart, CondAlways}:              StateClassifying,
	{StateClassifying, CondCasualChat}:    StateDone,
	{StateClassifying, CondAskBudget}:     StateDone,
	{StateClassifying, CondBuyRequest}:    StateRetrieving,
	{StateRetrieving, CondAlways}:         StateReasoning,
	{StateReasoning, CondAlways}:          StateEnriching,
	{StateEnriching, CondAlways}:          StateValidating,
	{StateValidating, CondRevisionNeeded}: StateRetrieving,
	{StateValidating, CondAccepted}:       StateDone,
}

// Next returns the state reached from one state under a condition.
func Next(from State, on Condition) (State, error) {
	to, ok := transitions[edge{from, on}]
	if !ok {
		return "", fmt.Errorf("no transition from %s on %s", from, on)
	}
	return to, nil
}
