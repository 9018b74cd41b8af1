package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/tokenizer"
)

// Combine says how a step's candidates merge into the running result.
type Combine int

const (
	// CombineAppend concatenates candidates onto the result.
	CombineAppend Combine = iota
	CombineAND
	CombineOR
)

func (c Combine) String() string {
	switch c {
	case CombineAND:
		return "AND"
	case CombineOR:
		return "OR"
	default:
		return "APPEND"
	}
}

const (
	opAND      = "AND"
	opOR       = "OR"
	openParen  = "("
	closeParen = ")"
)

// Step is one term lookup of a query.
type Step struct {
	Term    string
	Combine Combine
}

// QueryPlan is a flat, strictly left-to-right sequence of steps.
type QueryPlan struct {
	Steps    []Step
	RawQuery string
}

// Terms returns the looked-up terms in query order.
func (p *QueryPlan) Terms() []string {
	terms := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		terms[i] = s.Term
	}
	return terms
}

// Tokenize splits a query on whitespace.
func Tokenize(query string) []string {
	return strings.Fields(query)
}

// Parse builds a plan from a query line. Operators are exactly "AND" and
// "OR" (case sensitive) and parentheses are ignored. Every other token is a
// term whose combine mode comes from the token right before it: AND or OR
// select that operation, anything else (nothing, a parenthesis, another
// term) appends.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Steps:    make([]Step, 0),
		RawQuery: query,
	}
	tokens := Tokenize(query)
	for i, tok := range tokens {
		switch tok {
		case opAND, opOR, openParen, closeParen:
			continue
		}
		if !tokenizer.Valid(tok) {
			continue
		}
		step := Step{Term: tokenizer.Normalize(tok), Combine: CombineAppend}
		if i > 0 {
			switch tokens[i-1] {
			case opAND:
				step.Combine = CombineAND
			case opOR:
				step.Combine = CombineOR
			}
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan
}
