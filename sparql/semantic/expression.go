// Copyright 2015 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package semantic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nounverb/cnvq/sparql/planner/filter"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/literal"
)

// ErrUnbound is returned when an expression references an unbound variable.
var ErrUnbound = errors.New("unbound variable")

// Expression is a node of a FILTER expression tree.
type Expression interface {
	// Eval computes the value of the expression against the provided row.
	Eval(r table.Row) (triple.Value, error)
	String() string
}

// VarExpr returns the value bound to a variable.
type VarExpr struct {
	Name string
}

// Eval returns the bound value or ErrUnbound.
func (e *VarExpr) Eval(r table.Row) (triple.Value, error) {
	v, ok := r[e.Name]
	if !ok {
		return triple.Value{}, fmt.Errorf("?%s: %w", e.Name, ErrUnbound)
	}
	return v, nil
}

func (e *VarExpr) String() string { return "?" + e.Name }

// ConstExpr is a constant value.
type ConstExpr struct {
	Value triple.Value
}

// Eval returns the constant.
func (e *ConstExpr) Eval(table.Row) (triple.Value, error) {
	return e.Value, nil
}

func (e *ConstExpr) String() string { return e.Value.String() }

// NotExpr negates the effective boolean value of X.
type NotExpr struct {
	X Expression
}

// Eval negates the wrapped expression.
func (e *NotExpr) Eval(r table.Row) (triple.Value, error) {
	b, err := evalBool(e.X, r)
	if err != nil {
		return triple.Value{}, err
	}
	return triple.NewBoolean(!b), nil
}

func (e *NotExpr) String() string { return "!" + e.X.String() }

// AndExpr is the logical conjunction. A false operand wins over an error.
type AndExpr struct {
	Left, Right Expression
}

// Eval evaluates the conjunction short circuiting on false.
func (e *AndExpr) Eval(r table.Row) (triple.Value, error) {
	l, lerr := evalBool(e.Left, r)
	if lerr == nil && !l {
		return triple.NewBoolean(false), nil
	}
	rb, rerr := evalBool(e.Right, r)
	if rerr == nil && !rb {
		return triple.NewBoolean(false), nil
	}
	if lerr != nil {
		return triple.Value{}, lerr
	}
	if rerr != nil {
		return triple.Value{}, rerr
	}
	return triple.NewBoolean(true), nil
}

func (e *AndExpr) String() string { return fmt.Sprintf("(%s && %s)", e.Left, e.Right) }

// OrExpr is the logical disjunction. A true operand wins over an error.
type OrExpr struct {
	Left, Right Expression
}

// Eval evaluates the disjunction short circuiting on true.
func (e *OrExpr) Eval(r table.Row) (triple.Value, error) {
	l, lerr := evalBool(e.Left, r)
	if lerr == nil && l {
		return triple.NewBoolean(true), nil
	}
	rb, rerr := evalBool(e.Right, r)
	if rerr == nil && rb {
		return triple.NewBoolean(true), nil
	}
	if lerr != nil {
		return triple.Value{}, lerr
	}
	if rerr != nil {
		return triple.Value{}, rerr
	}
	return triple.NewBoolean(false), nil
}

func (e *OrExpr) String() string { return fmt.Sprintf("(%s || %s)", e.Left, e.Right) }

// CompareOp lists the comparison operators.
type CompareOp int

// Supported comparison operators.
const (
	EQ CompareOp = iota + 1
	NEQ
	LT
	LTE
	GT
	GTE
)

// String returns the operator symbol.
func (op CompareOp) String() string {
	switch op {
	case EQ:
		return "="
	case NEQ:
		return "!="
	case LT:
		return "<"
	case LTE:
		return "<="
	case GT:
		return ">"
	case GTE:
		return ">="
	default:
		return "UNKNOWN"
	}
}

// CompareExpr compares two expressions. Numeric values compare by
// magnitude, everything else by lexical form.
type CompareExpr struct {
	Op          CompareOp
	Left, Right Expression
}

// Eval evaluates the comparison.
func (e *CompareExpr) Eval(r table.Row) (triple.Value, error) {
	l, err := e.Left.Eval(r)
	if err != nil {
		return triple.Value{}, err
	}
	rv, err := e.Right.Eval(r)
	if err != nil {
		return triple.Value{}, err
	}
	c, err := compare(e.Op, l, rv)
	if err != nil {
		return triple.Value{}, err
	}
	switch e.Op {
	case EQ:
		return triple.NewBoolean(c == 0), nil
	case NEQ:
		return triple.NewBoolean(c != 0), nil
	case LT:
		return triple.NewBoolean(c < 0), nil
	case LTE:
		return triple.NewBoolean(c <= 0), nil
	case GT:
		return triple.NewBoolean(c > 0), nil
	case GTE:
		return triple.NewBoolean(c >= 0), nil
	}
	return triple.Value{}, fmt.Errorf("unknown comparison operator %d", e.Op)
}

func (e *CompareExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// compare returns the ordering of a and b. Equality checks accept any pair
// of terms; ordering checks require two literals or two IRIs.
func compare(op CompareOp, a, b triple.Value) (int, error) {
	if fa, ok := a.Numeric(); ok {
		if fb, ok := b.Numeric(); ok {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if op == EQ || op == NEQ {
		if a == b {
			return 0, nil
		}
		return 1, nil
	}
	if a.IsLiteral() != b.IsLiteral() || a.IsBlank() || b.IsBlank() {
		return 0, fmt.Errorf("cannot order %s and %s", a, b)
	}
	return strings.Compare(a.Text, b.Text), nil
}

// BoundExpr tests if a variable is bound.
type BoundExpr struct {
	Var string
}

// Eval returns true if the variable is bound in the row.
func (e *BoundExpr) Eval(r table.Row) (triple.Value, error) {
	_, ok := r[e.Var]
	return triple.NewBoolean(ok), nil
}

func (e *BoundExpr) String() string { return fmt.Sprintf("BOUND(?%s)", e.Var) }

// CallExpr invokes a built-in function. Unknown functions fail at
// evaluation time.
type CallExpr struct {
	Name string
	Op   filter.Operation
	Args []Expression
}

// NewCallExpr returns a call expression resolving the function name.
func NewCallExpr(name string, args []Expression) *CallExpr {
	op, _ := filter.Lookup(name)
	return &CallExpr{Name: strings.ToUpper(name), Op: op, Args: args}
}

// Eval evaluates the arguments and applies the function.
func (e *CallExpr) Eval(r table.Row) (triple.Value, error) {
	if e.Op.IsEmpty() {
		return triple.Value{}, fmt.Errorf("%s: %w", e.Name, filter.ErrUnsupported)
	}
	args := make([]triple.Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := a.Eval(r)
		if err != nil {
			return triple.Value{}, err
		}
		args = append(args, v)
	}
	return filter.Apply(e.Op, args)
}

func (e *CallExpr) String() string {
	args := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
}

// EBV returns the effective boolean value of a term.
func EBV(v triple.Value) (bool, error) {
	switch v.Kind {
	case triple.Literal, triple.LangLiteral:
		return v.Text != "", nil
	case triple.TypedLiteral:
		if v.Datatype == literal.XSDBoolean {
			return literal.ParseBool(v.Text)
		}
		if f, ok := v.Numeric(); ok {
			return f != 0, nil
		}
		if literal.TypeOf(v.Datatype) == literal.Text {
			return v.Text != "", nil
		}
		return false, fmt.Errorf("invalid lexical form %s", v)
	}
	return false, fmt.Errorf("no effective boolean value for %s", v)
}

func evalBool(e Expression, r table.Row) (bool, error) {
	v, err := e.Eval(r)
	if err != nil {
		return false, err
	}
	return EBV(v)
}

// Satisfied returns true only if the expression evaluates to true on the
// row. Evaluation errors, such as unbound variables, count as false.
func Satisfied(e Expression, r table.Row) bool {
	b, err := evalBool(e, r)
	return err == nil && b
}
