package config

import "time"

const (
	// Storage key of the persisted state blob
	StorageKey = "chat-create-storage"

	// Gallery limits
	MaxPersistedImages = 20
	MaxGalleryInMemory = 100

	// Model listing request timeout
	ModelListTimeout = 5 * time.Second

	// Image download timeout
	ImageFetchTimeout = 2 * time.Minute

	// Upper bound (exclusive) for random seeds
	MaxRandomSeed = 1_000_000

	// Defaults
	DefaultChatModel    = "mistral"
	DefaultImageModel   = "flux"
	DefaultSystemPrompt = "You are a helpful creative assistant."
	DefaultImagePrompt  = "a neon fox, cinematic, rim light, 85mm"

	// Text shown when the service answered without content
	EmptyCompletionText = "No response received."

	// Telegram paging
	GalleryPerPage = 5
	ModelsPerPage  = 8

	// Telegram limits
	MaxTelegramMessageLen = 4096
	MaxTelegramCaptionLen = 1024
)
