// Package render produces the sidebar markup for a request.
//
// The Orchestrator selects a profile, decodes its settings and decides
// whether the output is dynamic. Static output goes through the fragment
// cache keyed by locale and profile id; dynamic output is always rendered
// fresh and never touches the cache. Renders that fail or produce nothing
// yield ErrNoOutput and are never cached.
//
// TemplateRenderer is the default Renderer, built on html/template. Style
// settings pass through a closed StyleKind strategy table that validates
// each value before it reaches the page.
package render
