package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Focus duration used when /new omits one
	DefaultFocusMinutes int
	// Break duration used when /new omits one
	DefaultBreakMinutes int
	// Days a pending review may sit overdue before /reschedule rolls it forward
	RescheduleGraceDays int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultFocusMinutes: 25,
		DefaultBreakMinutes: 5,
		RescheduleGraceDays: 1,
	}
}
