// Copyright © 2024 The Mago authors

package analysis

import (
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/source"
)

// Category is the category of every issue reported by the analyzer.
const Category = "analysis"

// Issue codes reported by the analyzer.
const (
	CodeParseError                      = "parse-error"
	CodeInternalError                   = "internal-error"
	CodeNonExistentConstant             = "non-existent-constant"
	CodeNonExistentFunction             = "non-existent-function"
	CodeNonExistentClassLike            = "non-existent-class-like"
	CodeNonExistentMethod               = "non-existent-method"
	CodeNonExistentProperty             = "non-existent-property"
	CodeNonExistentClassConstant        = "non-existent-class-constant"
	CodeUndefinedVariable               = "undefined-variable"
	CodePossiblyUndefinedVariable       = "possibly-undefined-variable"
	CodeInvalidArgument                 = "invalid-argument"
	CodePossiblyInvalidArgument         = "possibly-invalid-argument"
	CodeTooFewArguments                 = "too-few-arguments"
	CodeTooManyArguments                = "too-many-arguments"
	CodeInvalidNamedArgument            = "invalid-named-argument"
	CodeDuplicateNamedArgument          = "duplicate-named-argument"
	CodeInvalidReturnStatement          = "invalid-return-statement"
	CodeMissingReturnStatement          = "missing-return-statement"
	CodeUnreachableStatement            = "unreachable-statement"
	CodeUnusedAssignment                = "unused-assignment"
	CodeUnusedAssignmentWithSideEffects = "unused-assignment-with-side-effects"
	CodeUnusedStatement                 = "unused-statement"
	CodeUnusedFunctionCall              = "unused-function-call"
	CodeUnusedMethod                    = "unused-method"
	CodeUnusedProperty                  = "unused-property"
	CodeDisallowedConstruct             = "disallowed-construct"
	CodeTypeNeverMatches                = "type-never-matches"
	CodeInvalidOperand                  = "invalid-operand"
	CodeInvalidMethodAccess             = "invalid-method-access"
	CodePossiblyNullMethodAccess        = "possibly-null-method-access"
	CodeInvalidPropertyAccess           = "invalid-property-access"
	CodePossiblyNullPropertyAccess      = "possibly-null-property-access"
	CodeInvalidPropertyAssignment       = "invalid-property-assignment"
	CodeAbstractInstantiation           = "abstract-instantiation"
	CodeInterfaceInstantiation          = "interface-instantiation"
	CodeExtendFinalClass                = "extend-final-class"
	CodeInvalidExtend                   = "invalid-extend"
	CodeInvalidImplement                = "invalid-implement"
	CodeMissingAbstractImplementation   = "missing-abstract-implementation"
	CodeDeprecatedFunction              = "deprecated-function"
	CodeDeprecatedMethod                = "deprecated-method"
	CodeDeprecatedClass                 = "deprecated-class"
	CodeInvalidInclude                  = "invalid-include"
	CodeInvalidExitArgument             = "invalid-exit-argument"
	CodeTaintedData                     = "tainted-data"
)

// report adds an issue unless the analyzer is in a silent pre-pass.
func (a *analyzer) report(level diagnostic.Level, code string, span source.Span, msg, label string) *diagnostic.Issue {
	issue := diagnostic.NewIssue(level, Category, code, msg).At(span, label)
	if a.silent == 0 {
		a.result.Issues.Add(issue)
	}
	return issue
}

func (a *analyzer) errorf(code string, span source.Span, msg, label string) *diagnostic.Issue {
	return a.report(diagnostic.LevelError, code, span, msg, label)
}

func (a *analyzer) warnf(code string, span source.Span, msg, label string) *diagnostic.Issue {
	return a.report(diagnostic.LevelWarning, code, span, msg, label)
}
