package ccdsim

// Camera property names.
const (
	ExposureProperty    = "CCD_EXPOSURE"
	AbortProperty       = "CCD_ABORT_EXPOSURE"
	ImageProperty       = "CCD_IMAGE"
	GainProperty        = "CCD_GAIN"
	OffsetProperty      = "CCD_OFFSET"
	InfoProperty        = "CCD_INFO"
	TemperatureProperty = "CCD_TEMPERATURE"
)

// Item names within the camera properties.
const (
	ExposureItem    = "EXPOSURE"
	AbortItem       = "ABORT_EXPOSURE"
	ImageItem       = "IMAGE"
	GainItem        = "GAIN"
	OffsetItem      = "OFFSET"
	TemperatureItem = "TEMPERATURE"

	InfoWidth        = "WIDTH"
	InfoHeight       = "HEIGHT"
	InfoPixelSize    = "PIXEL_SIZE"
	InfoBitsPerPixel = "BITS_PER_PIXEL"
)

// GroupImager is the browsing group for camera properties.
const GroupImager = "Imager"
