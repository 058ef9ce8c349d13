// Package classify maps request text and session state to a task category.
//
// Classification is an ordered rule table evaluated top-down, first match
// wins. Specific rules (migration, analysis) sit above generic ones
// (trivial query, default consult) so that a prompt mentioning both a
// migration and an error lands on the more specific category.
package classify

import "strings"

// TaskCategory is the closed set of task variants the router understands.
type TaskCategory string

const (
	CategoryTrivialQuery     TaskCategory = "trivial-query"
	CategorySimpleConsult    TaskCategory = "simple-consult"
	CategoryCodeAnalysis     TaskCategory = "code-analysis"
	CategoryComplexMigration TaskCategory = "complex-migration"
	CategoryDebugging        TaskCategory = "debugging"
	CategoryDocumentation    TaskCategory = "documentation"
	CategoryRefactoring      TaskCategory = "refactoring"
	CategoryArchitecture     TaskCategory = "architecture"
	CategoryConversation     TaskCategory = "conversation"
)

// Categories lists every task category in a stable order.
func Categories() []TaskCategory {
	return []TaskCategory{
		CategoryTrivialQuery,
		CategorySimpleConsult,
		CategoryCodeAnalysis,
		CategoryComplexMigration,
		CategoryDebugging,
		CategoryDocumentation,
		CategoryRefactoring,
		CategoryArchitecture,
		CategoryConversation,
	}
}

// SessionMode is the explicit mode carried by the calling session.
type SessionMode string

const (
	ModeDefault      SessionMode = "default"
	ModeDev          SessionMode = "dev"
	ModeConversation SessionMode = "conversation"
	ModeGame         SessionMode = "game"
)

// trivialQueryMaxLen is the length below which generic phrasing counts as a
// trivial query.
const trivialQueryMaxLen = 50

// rule pairs a predicate with the category it selects.
type rule struct {
	name     string
	match    func(text string) bool
	category TaskCategory
}

// Classifier assigns a task category to request text. Stateless and
// deterministic: identical (text, mode) always yields the same category.
type Classifier struct {
	rules []rule
}

// NewClassifier builds a classifier with the default rule table.
func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules()}
}

// Classify returns the task category for the given text and session mode.
// Total function: it never fails and always returns a member of the closed
// category set.
func (c *Classifier) Classify(text string, mode SessionMode) TaskCategory {
	// An explicit conversational mode wins over any text rule.
	if mode == ModeConversation || mode == ModeGame {
		return CategoryConversation
	}

	lower := strings.ToLower(text)
	for _, r := range c.rules {
		if r.match(lower) {
			return r.category
		}
	}

	// Dev sessions without a specific signal are assumed to be looking at code.
	if mode == ModeDev {
		return CategoryCodeAnalysis
	}

	return CategorySimpleConsult
}

// Rules returns the rule names in evaluation order, for inspection.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.name
	}
	return names
}

func defaultRules() []rule {
	migrationVerbs := []string{"migrate", "migration", "port ", "convert"}
	scopeNouns := []string{"project", "codebase", "entire", "whole", "complete", "massive", "repository", "300k lines"}

	analysisVerbs := []string{"analyze", "analyse", "analysis", "review", "inspect", "understand", "what does", "how does", "explain this code", "walk through"}
	codeNouns := []string{"code", "function", "class", "module", "component", "dependency", "dependencies", "structure", "fragment", "implementation"}

	debugWords := []string{"error", "bug", "crash", "broken", "fails", "failing", "failure", "exception", "stack trace", "doesn't work", "not working", "debug", "fix "}

	docWords := []string{"document", "documentation", "tutorial", "guide", "readme", "docstring", "comment the", "write docs", "explain how", "how to use"}

	refactorWords := []string{"refactor", "restructure", "rename", "clean up", "cleanup", "simplify", "extract", "reorganize", "modernize"}

	archWords := []string{"architecture", "architect", "system design", "design a", "scalability", "scaling", "performance", "high availability", "schema design", "topology"}

	trivialStarters := []string{"what is", "what's", "which is", "where is", "where's", "when", "why", "who", "list", "show", "find", "search", "lookup"}

	return []rule{
		{
			name: "complex-migration",
			match: func(text string) bool {
				return containsAny(text, migrationVerbs) && containsAny(text, scopeNouns)
			},
			category: CategoryComplexMigration,
		},
		{
			name: "code-analysis",
			match: func(text string) bool {
				return containsAny(text, analysisVerbs) && containsAny(text, codeNouns)
			},
			category: CategoryCodeAnalysis,
		},
		{
			name: "debugging",
			match: func(text string) bool {
				return containsAny(text, debugWords)
			},
			category: CategoryDebugging,
		},
		{
			name: "documentation",
			match: func(text string) bool {
				return containsAny(text, docWords)
			},
			category: CategoryDocumentation,
		},
		{
			name: "refactoring",
			match: func(text string) bool {
				return containsAny(text, refactorWords)
			},
			category: CategoryRefactoring,
		},
		{
			name: "architecture",
			match: func(text string) bool {
				return containsAny(text, archWords)
			},
			category: CategoryArchitecture,
		},
		{
			name: "trivial-query",
			match: func(text string) bool {
				return len(text) < trivialQueryMaxLen && containsAny(text, trivialStarters)
			},
			category: CategoryTrivialQuery,
		},
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
