package domain

// Classification is the validated verdict on an inquiry.
type Classification struct {
	SeeksHelp bool   `json:"seeks_help" jsonschema_description:"Whether the inquiry asks for assistance"`
	Category  string `json:"category" jsonschema_description:"Short category label for the inquiry"`
}
