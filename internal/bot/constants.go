package bot

import "time"

const (
	logPrefix = "[studybot]"

	defaultPrefix = "$"

	// maxMessageLen is the longest content the chat accepts in one message.
	maxMessageLen = 2000

	maxImageBytes      = 8 << 20
	maxSongBytes       = 25 << 20
	flashcardImageDim  = 1024
	flashcardImageName = "card.png"

	defaultPingDelay = 3 * time.Second
	handlerTimeout   = 2 * time.Minute

	embedColor       = 0x00ffff
	helpColor        = 0x00ff00
	alertColor       = 0xff0000
	correctColor     = 0x2ecc71
	incorrectColor   = 0xe74c3c
	taskDueLayout    = "2006-01-02 15:04:05"
	profileDayLayout = "02-01-2006"
)

const (
	msgRegisterFirst = "User not found. Please register first."
	msgSetTaskFirst  = "Please set the task.\nUse set_task <task_name> or set_task_by_id <task_id>"
	msgAIDisabled    = "AI is not configured on this bot."
	msgAIFailed      = "There was an error from serverside.. Please try again.."
	msgPrivateHello  = "Hi how can I help you today?"
)
