// Copyright © 2024 The Mago authors

package repl

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/magophp/mago/analysis"
	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/lexer"
	"github.com/magophp/mago/parser/rdparser"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

const header = "<?php\n"

// Typed is the inferred type of one expression of an input.
type Typed struct {
	Expr string
	Type string
}

// Result is the outcome of evaluating one input.
type Result struct {
	// File holds the whole session, including the input.
	File *source.File
	// Types lists the expression statements and echoed values of the input
	// in source order.
	Types []Typed
	// Issues lists the issues located in the input.
	Issues []*diagnostic.Issue
}

type parsedFile struct {
	file  *source.File
	prog  *ast.Program
	names *names.Names
}

// Session accumulates the statements entered in the REPL.  Every input is
// analyzed together with the statements before it, so variables, functions,
// and classes stay visible to later inputs.  Inputs with errors are not
// kept.
type Session struct {
	db       *source.Database
	settings analysis.Settings
	prelude  []parsedFile
	code     string
	evals    int
	cb       *codebase.Codebase
}

// NewSession returns an empty session that analyzes with settings.
// Unused expressions are never reported, since entering one is how a type
// is inspected.
func NewSession(settings analysis.Settings) (*Session, error) {
	settings.FindUnusedExpressions = false
	in := interner.New()
	db := source.NewDatabase(in)
	files, err := analysis.AddPrelude(db)
	if err != nil {
		return nil, err
	}
	s := &Session{db: db, settings: settings}
	for _, f := range files {
		prog, err := parser.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("prelude %s: %w", f.Name, err)
		}
		s.prelude = append(s.prelude, parsedFile{file: f, prog: prog, names: names.Resolve(in, prog)})
	}
	s.cb = s.index(nil)
	return s, nil
}

// Files resolves the spans of issues returned by Eval.
func (s *Session) Files() diagnostic.Files {
	return s.db
}

// Source returns the statements kept so far.
func (s *Session) Source() string {
	return s.code
}

// Reset forgets every kept statement.
func (s *Session) Reset() {
	s.code = ""
	s.cb = s.index(nil)
}

// Codebase returns the symbols known to the session.
func (s *Session) Codebase() *codebase.Codebase {
	return s.cb
}

// Eval analyzes input after the kept statements.  A missing final semicolon
// is added.  The input is kept unless it fails to parse or has an error
// level issue.
func (s *Session) Eval(input string) (*Result, error) {
	chunk := terminate(strings.TrimSpace(input))
	if chunk == "" {
		return &Result{}, nil
	}
	s.evals++
	start := len(header) + len(s.code)
	text := header + s.code + chunk + "\n"
	f := s.db.Add(fmt.Sprintf("repl-%d.php", s.evals), text, source.UserDefined)

	prog, err := parser.Parse(f)
	if err != nil {
		return &Result{File: f, Issues: []*diagnostic.Issue{syntaxIssue(f, err)}}, nil
	}
	user := parsedFile{file: f, prog: prog, names: names.Resolve(s.db.Interner(), prog)}
	cb := s.index(&user)

	res := analysis.Analyze(f, prog, user.names, &analysis.Config{Codebase: cb, Settings: s.settings})
	issues := cb.Issues.File(f.ID)
	issues = append(issues, res.Issues.File(f.ID)...)

	out := &Result{File: f}
	for _, i := range issues {
		if int(i.Primary.Span.Start) >= start {
			out.Issues = append(out.Issues, i)
		}
	}
	sort.SliceStable(out.Issues, func(a, b int) bool {
		return out.Issues[a].Primary.Span.Start < out.Issues[b].Primary.Span.Start
	})
	for _, stmt := range prog.Statements {
		if int(stmt.Span().Start) < start {
			continue
		}
		out.Types = append(out.Types, statementTypes(f, stmt, res.Artifacts)...)
	}

	for _, i := range out.Issues {
		if i.Level == diagnostic.LevelError {
			return out, nil
		}
	}
	s.code += chunk + "\n"
	s.cb = cb
	return out, nil
}

// index builds the codebase of the prelude and the optional user file.
func (s *Session) index(user *parsedFile) *codebase.Codebase {
	cb := codebase.New()
	for _, p := range s.prelude {
		cb.Merge(codebase.Scan(p.file, p.prog, p.names))
	}
	if user != nil {
		cb.Merge(codebase.Scan(user.file, user.prog, user.names))
	}
	cb.Populate()
	return cb
}

func statementTypes(f *source.File, stmt ast.Stmt, art *analysis.Artifacts) []Typed {
	var exprs []ast.Expr
	switch stmt := stmt.(type) {
	case *ast.ExprStmt:
		exprs = append(exprs, stmt.Expr)
	case *ast.Echo:
		exprs = append(exprs, stmt.Values...)
	}
	var out []Typed
	for _, e := range exprs {
		if u, ok := art.TypeOf(e); ok {
			out = append(out, Typed{Expr: e.Span().Text(f), Type: u.String()})
		}
	}
	return out
}

func syntaxIssue(f *source.File, err error) *diagnostic.Issue {
	span := source.Span{File: f.ID, Start: uint32(len(f.Content)), End: uint32(len(f.Content))}
	msg := err.Error()
	var pe *rdparser.ParseError
	if errors.As(err, &pe) {
		span = pe.Span
		msg = pe.Message
	}
	return diagnostic.NewIssue(diagnostic.LevelError, "syntax", analysis.CodeParseError, msg).
		At(span, "syntax error")
}

// significant returns the non-trivia tokens of input in script mode.
func significant(input string) []*token.Token {
	lex := lexer.New(token.NewStringScanner(0, header+input))
	var toks []*token.Token
	for {
		tok := lex.ReadToken()
		if tok.Kind == token.EOF {
			return toks
		}
		if tok.Kind.IsTrivia() || tok.Kind == token.OpenTag {
			continue
		}
		toks = append(toks, tok)
	}
}

// terminate appends a semicolon to input unless it already ends a
// statement.
func terminate(input string) string {
	toks := significant(input)
	if len(toks) == 0 {
		return input
	}
	switch toks[len(toks)-1].Kind {
	case token.Semicolon, token.RightBrace, token.CloseTag, token.SyntaxError:
		return input
	}
	return input + ";"
}

// Incomplete reports whether input has unclosed brackets, strings, or
// comments, in which case the REPL reads another line before evaluating.
func Incomplete(input string) bool {
	depth := 0
	quoted := map[token.Kind]bool{}
	for _, tok := range significant(input) {
		switch tok.Kind {
		case token.LeftParen, token.LeftBracket, token.LeftBrace, token.DollarLeftBrace:
			depth++
		case token.RightParen, token.RightBracket, token.RightBrace:
			depth--
		case token.DoubleQuote, token.Backtick:
			quoted[tok.Kind] = !quoted[tok.Kind]
		case token.DocumentStart:
			quoted[token.DocumentStart] = true
		case token.DocumentEnd:
			quoted[token.DocumentStart] = false
		case token.SyntaxError:
			if strings.HasPrefix(tok.Value, "unterminated") {
				return true
			}
		}
	}
	if depth > 0 {
		return true
	}
	for _, open := range quoted {
		if open {
			return true
		}
	}
	return false
}
