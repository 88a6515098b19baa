package watch

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the feed at feedURL until the user quits or ctx is done.
func Run(ctx context.Context, feedURL string) error {
	p := tea.NewProgram(New(feedURL), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
