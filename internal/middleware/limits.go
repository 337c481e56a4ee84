package middleware

import "fmt"

// TurnLimit stops the loop after a configured number of model calls for one
// user request. The counter re-arms on the next request, not on compaction.
type TurnLimit struct {
	max   int
	count int
}

// NewTurnLimit creates the turn cap. max <= 0 disables it.
func NewTurnLimit(max int) *TurnLimit {
	return &TurnLimit{max: max}
}

func (t *TurnLimit) Name() string { return "turn_limit" }

func (t *TurnLimit) BeforeTurn(ctx *Context) Result {
	if t.max <= 0 {
		return Continue()
	}
	t.count++
	if t.count > t.max {
		return Result{
			Action: ActionStop,
			Reason: fmt.Sprintf("turn limit of %d reached", t.max),
		}
	}
	return Continue()
}

// AfterTurn never stops; a turn is charged when the call begins.
func (t *TurnLimit) AfterTurn(*Context) Result { return Continue() }

func (t *TurnLimit) Reset(event ResetEvent) {
	if event == ResetNewRequest {
		t.count = 0
	}
}

// PriceLimit stops the loop once the session spend reaches the cap. The spend
// is cumulative for the session; compaction does not refund it.
type PriceLimit struct {
	max float64
}

// NewPriceLimit creates the spend cap. max <= 0 disables it.
func NewPriceLimit(max float64) *PriceLimit {
	return &PriceLimit{max: max}
}

func (p *PriceLimit) Name() string { return "price_limit" }

func (p *PriceLimit) BeforeTurn(ctx *Context) Result { return p.check(ctx) }

// AfterTurn re-checks the cap so spend from the turn that just finished
// stops the loop now instead of on the next call.
func (p *PriceLimit) AfterTurn(ctx *Context) Result { return p.check(ctx) }

func (p *PriceLimit) check(ctx *Context) Result {
	if p.max <= 0 || ctx.Stats == nil {
		return Continue()
	}
	if ctx.Stats.Price >= p.max {
		return Result{
			Action: ActionStop,
			Reason: fmt.Sprintf("price limit of $%.2f reached (spent $%.4f)", p.max, ctx.Stats.Price),
		}
	}
	return Continue()
}

func (p *PriceLimit) Reset(ResetEvent) {}
