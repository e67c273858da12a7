package notifications

// StaticData is the part of the notification template data model set upon initialization.
type StaticData struct {
	Title string
	Host  string
}

// Data is the notification template data model.
type Data struct {
	StaticData

	Project       string // Compose project of the request.
	Service       string // Compose service of the request.
	ContainerName string // Name of the recreated container, empty on early failure.
	ImageTag      string // Tag that was pulled.
	OldImageID    string // Short id of the image the container was bound to.
	NewImageID    string // Short id of the pulled image.
	Recreated     bool   // True when the container was replaced.
	Error         string // Failure message, empty on success.
}
