// Copyright © 2024 The Mago authors

package lint

import (
	"strings"
	"unicode"

	"github.com/magophp/mago/astutil"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
)

// AnalyzerNoEval reports uses of eval.
var AnalyzerNoEval = &Analyzer{
	Name:  "no-eval",
	Group: "safety",
	Level: diagnostic.LevelError,
	Doc:   "Disallow `eval`.\n\nEvaluating a string as code hides it from every static check and is a common injection vector. Call the code directly or use a closure.",
	Run: func(pass *Pass) error {
		ast.Inspect(pass.Program, func(n ast.Node) bool {
			if e, ok := n.(*ast.Eval); ok {
				pass.Reportf(e.Span(), "eval used here", "Do not use `eval`.").
					WithHelp("Call the code directly instead of evaluating a string.")
			}
			return true
		})
		return nil
	},
}

// AnalyzerNoErrorControlOperator reports the @ operator.
var AnalyzerNoErrorControlOperator = &Analyzer{
	Name:  "no-error-control-operator",
	Group: "safety",
	Level: diagnostic.LevelWarning,
	Doc:   "Disallow the error control operator `@`.\n\nSilencing an expression hides every warning it raises, including ones that signal real bugs. Check the failure condition explicitly instead.",
	Run: func(pass *Pass) error {
		ast.Inspect(pass.Program, func(n ast.Node) bool {
			if u, ok := n.(*ast.Unary); ok && u.Op == token.At {
				pass.Reportf(u.Span(), "error control operator", "Do not silence errors with `@`.").
					WithHelp("Handle the failure explicitly.")
			}
			return true
		})
		return nil
	},
}

// AnalyzerAssignmentInCondition reports assignments used as conditions.
var AnalyzerAssignmentInCondition = &Analyzer{
	Name:  "assignment-in-condition",
	Group: "correctness",
	Level: diagnostic.LevelWarning,
	Doc:   "Warn about assignments in the condition of `if`, `elseif`, `while`, `do-while`, and ternaries.\n\n`if ($a = $b)` is usually a typo for `==`. Assign before the condition, or compare the assignment result explicitly.",
	Run: func(pass *Pass) error {
		check := func(cond ast.Expr) {
			if cond == nil {
				return
			}
			for _, a := range conditionAssignments(cond) {
				pass.Reportf(a.Span(), "assignment in condition", "Assignment used as a condition.").
					WithHelp("Did you mean `==`? Otherwise move the assignment out of the condition.")
			}
		}
		ast.Inspect(pass.Program, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.If:
				check(n.Cond)
			case *ast.ElseIf:
				check(n.Cond)
			case *ast.While:
				check(n.Cond)
			case *ast.DoWhile:
				check(n.Cond)
			case *ast.Ternary:
				check(n.Cond)
			}
			return true
		})
		return nil
	},
}

// conditionAssignments returns the plain assignments of cond, looking
// through parentheses, negation, and logical operators.
func conditionAssignments(cond ast.Expr) []*ast.Assign {
	switch e := astutil.Unparen(cond).(type) {
	case *ast.Assign:
		if e.Op == token.Equal {
			return []*ast.Assign{e}
		}
	case *ast.Unary:
		if e.Op == token.Bang {
			return conditionAssignments(e.Operand)
		}
	case *ast.Binary:
		switch e.Op {
		case token.AmpersandAmpersand, token.PipePipe, token.And, token.Or, token.Xor:
			return append(conditionAssignments(e.Left), conditionAssignments(e.Right)...)
		}
	}
	return nil
}

// AnalyzerNoEmptyCatchClause reports catch blocks that swallow exceptions.
var AnalyzerNoEmptyCatchClause = &Analyzer{
	Name:  "no-empty-catch-clause",
	Group: "correctness",
	Level: diagnostic.LevelWarning,
	Doc:   "Disallow empty `catch` blocks.\n\nSilently discarding an exception hides failures. Handle it, rethrow it, or leave a comment explaining why it is safe to ignore.",
	Run: func(pass *Pass) error {
		ast.Inspect(pass.Program, func(n ast.Node) bool {
			c, ok := n.(*ast.Catch)
			if !ok || c.Body == nil || len(c.Body.Statements) > 0 {
				return true
			}
			if hasComment(pass.Program, c.Body) {
				return true
			}
			pass.Reportf(c.Span(), "empty catch", "Empty catch block.").
				WithHelp("Handle the exception or explain in a comment why it is ignored.")
			return true
		})
		return nil
	},
}

func hasComment(prog *ast.Program, n ast.Node) bool {
	span := n.Span()
	for _, t := range prog.Comments() {
		if t.Range.Start >= span.Start && t.Range.End <= span.End {
			return true
		}
	}
	return false
}

// AnalyzerTooManyParameters reports function-likes with long parameter
// lists.
var AnalyzerTooManyParameters = &Analyzer{
	Name:  "too-many-parameters",
	Group: "maintainability",
	Level: diagnostic.LevelWarning,
	Doc:   "Warn when a function-like declares more parameters than `threshold` (default 5).\n\nLong parameter lists are hard to call correctly. Group related values into an object.",
	Run: func(pass *Pass) error {
		threshold := pass.Settings.Int("threshold", 5)
		for _, f := range astutil.FunctionLikes(pass.Program) {
			if n := f.ParamCount(); n > threshold {
				pass.Reportf(f.Params.Span(), "parameters declared here",
					"%s has %d parameters; at most %d are allowed.", describe(f), n, threshold).
					WithHelp("Group related parameters into an object.")
			}
		}
		return nil
	},
}

// AnalyzerRequireReturnType reports functions and methods without a declared
// return type.
var AnalyzerRequireReturnType = &Analyzer{
	Name:  "require-return-type",
	Group: "strictness",
	Level: diagnostic.LevelNote,
	Doc:   "Require a return type on functions and methods.\n\nConstructors, destructors, and `__clone` are exempt. Closures and arrow functions are not checked.",
	Run: func(pass *Pass) error {
		for _, f := range astutil.FunctionLikes(pass.Program) {
			if f.Name == nil || f.ReturnType != nil {
				continue
			}
			switch strings.ToLower(f.Name.Value) {
			case "__construct", "__destruct", "__clone":
				continue
			}
			pass.Reportf(f.Name.Span(), "missing return type", "%s has no return type.", describe(f)).
				WithHelp("Declare the return type, using `void` when nothing is returned.")
		}
		return nil
	},
}

// AnalyzerClassName reports class names that are not PascalCase.
var AnalyzerClassName = &Analyzer{
	Name:  "class-name",
	Group: "naming",
	Level: diagnostic.LevelHelp,
	Doc:   "Require class names in PascalCase.\n\nA class name must start with an uppercase letter and contain only letters and digits.",
	Run: func(pass *Pass) error {
		ast.Inspect(pass.Program, func(n ast.Node) bool {
			c, ok := n.(*ast.ClassLike)
			if !ok || c.Kind != ast.KindClass || c.Name == nil {
				return true
			}
			if !isPascalCase(c.Name.Value) {
				pass.Reportf(c.Name.Span(), "class name", "Class name `%s` is not in PascalCase.", c.Name.Value).
					WithHelp("Rename the class to `" + pascalCase(c.Name.Value) + "`.")
			}
			return true
		})
		return nil
	},
}

func isPascalCase(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func pascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func describe(f astutil.FunctionLike) string {
	switch {
	case f.Method:
		return "Method `" + f.Name.Value + "`"
	case f.Name != nil:
		return "Function `" + f.Name.Value + "`"
	}
	return "Closure"
}
