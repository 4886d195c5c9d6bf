// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/source"
)

// FindUnusedDefinitions reports private methods and properties of user
// classes that no scope other than their own refers to.  refs must hold the
// references of every analyzed file.
func FindUnusedDefinitions(cb *codebase.Codebase, refs *codebase.SymbolReferences) *diagnostic.IssueCollection {
	issues := &diagnostic.IssueCollection{}
	keys := make([]string, 0, len(cb.Classes))
	for k := range cb.Classes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		m := cb.Classes[k]
		if m.Category != source.UserDefined || m.IsInterface() {
			continue
		}
		for _, name := range sortedVarKeys(m.Methods) {
			f := m.Methods[name]
			if f.Visibility != codebase.Private || strings.HasPrefix(name, "__") || f.Abstract {
				continue
			}
			if referencedElsewhere(refs, m.Name, f.Name, codebase.MemberKey(m.Name, f.Name)) {
				continue
			}
			issues.Add(diagnostic.NewIssue(diagnostic.LevelWarning, Category, CodeUnusedMethod,
				fmt.Sprintf("Private method `%s` is never used.", f.DisplayName())).
				At(f.NameSpan, "unused method").
				WithHelp("Remove the method or call it."))
		}
		for _, name := range sortedVarKeys(m.Properties) {
			p := m.Properties[name]
			if p.Visibility != codebase.Private || p.Promoted {
				continue
			}
			if referencedElsewhere(refs, m.Name, "$"+p.Name, "") {
				continue
			}
			issues.Add(diagnostic.NewIssue(diagnostic.LevelWarning, Category, CodeUnusedProperty,
				fmt.Sprintf("Private property `%s::$%s` is never used.", m.Name, p.Name)).
				At(p.Span, "unused property").
				WithHelp("Remove the property or read it."))
		}
	}
	return issues
}

// referencedElsewhere reports whether a scope other than self refers to
// member of class.
func referencedElsewhere(refs *codebase.SymbolReferences, class, member, self string) bool {
	for _, from := range refs.Referencers(class, member) {
		if from != self {
			return true
		}
	}
	return false
}
