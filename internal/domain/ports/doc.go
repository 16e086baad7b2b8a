// Package ports defines the interfaces the application services consume.
// Services depend on these instead of concrete repositories so the workflow
// engine and approval logic can be unit tested with mocks.
package ports
