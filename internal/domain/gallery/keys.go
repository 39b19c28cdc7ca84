package gallery

// Command is a slideshow action triggered by input
type Command string

const (
	CommandNone           Command = ""
	CommandNext           Command = "next"
	CommandPrevious       Command = "previous"
	CommandToggleAutoplay Command = "toggle_autoplay"
	CommandClose          Command = "close"
)

// CommandForKey maps a KeyboardEvent.key value to a command
func CommandForKey(key string) Command {
	switch key {
	case "ArrowRight":
		return CommandNext
	case "ArrowLeft":
		return CommandPrevious
	case " ", "Space", "Spacebar":
		return CommandToggleAutoplay
	case "Escape", "Esc":
		return CommandClose
	default:
		return CommandNone
	}
}
