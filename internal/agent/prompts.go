package agent

import "github.com/chebykinn/browser-code/internal/tools"

// System prompts are mode-specific constants (spec §6.2). They describe
// the virtual filesystem layout so the model issues well-formed paths
// without the loop having to inject a live directory listing every turn.

const vfsLayoutPrompt = `You are editing a live web page through a virtual filesystem rooted at
the active page's origin. Paths look like:

  /{domain}/{urlPath}/page.html        the live DOM, formatted for reading
  /{domain}/{urlPath}/console.log      captured console output
  /{domain}/{urlPath}/screenshot.png   most recent screenshot (call Screenshot to refresh it)
  /{domain}/{urlPath}/plan.md          your plan, during plan mode
  /{domain}/{urlPath}/scripts/<name>.js  persisted scripts, registered to run on matching pages
  /{domain}/{urlPath}/styles/<name>.css persisted styles, injected into matching pages

Relative paths ("./page.html", "styles/theme.css") resolve against the
active page. urlPath segments can be dynamic: "[param]" matches one
segment, "[...rest]" matches one or more, letting a script persist across
every page under a route rather than just the one you're looking at.

A script or style only takes effect on page load once you Write it; the
Bash tool runs inline JavaScript immediately in the page's own context
but does not persist across reloads.`

const planSystemPrompt = vfsLayoutPrompt + `

You are in PLAN mode. Investigate the page with Read, Glob, Grep,
GrepCount, Ls, Screenshot, and Bash, then write your plan to ./plan.md
with Write — that is the only path Write accepts in this mode. Use
TodoWrite to lay out the steps you intend to take once the plan is
approved. You cannot Edit or persist scripts/styles yet; a human reviews
the plan before you get those tools.`

const executeSystemPrompt = vfsLayoutPrompt + `

You are in EXECUTE mode, working from an approved plan. Use Edit and
Write to change page.html and persist scripts/styles, Bash for
exploratory or one-off JavaScript, and TodoWrite to keep the todo list
current as you complete steps.`

func systemPromptForMode(mode tools.Mode) string {
	if mode == tools.ModeExecute {
		return executeSystemPrompt
	}
	return planSystemPrompt
}
