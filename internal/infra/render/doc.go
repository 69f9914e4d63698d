// Package render turns a notice type and its context into the text each
// delivery format needs.
//
// Templates are text/template sources looked up by notice type label,
// format and locale, with built-in generic templates as the last fallback.
// The locale is an argument of every Render call; nothing here keeps an
// active-locale state between calls.
package render
