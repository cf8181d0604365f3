// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [LoadingView] : first fetch in flight
//  2. [FeedView] : the channel's recent uploads, with an inline retryable error when a fetch fails
//  3. [SignedOutView] : the session ended; the user is told to run `ytdash auth login`
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// A background [dashboard.Dashboard.Run] loop delivers session changes and periodic refreshes through a channel,
// so a sign-out in the browser or a revoked grant moves the terminal to [SignedOutView] without a keypress.
//
// Keyboard navigation uses vim-style bindings (j/k, enter to open in the browser, r to refresh, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
