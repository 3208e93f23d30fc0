package dashscope

const defaultImageSize = "1024*1024"

// imageSizeByResolution maps a display resolution onto the width*height size
// parameter of the image endpoints. Distinct from videoResolutionParam: the
// video endpoint takes a resolution tier token, not pixel dimensions.
var imageSizeByResolution = map[string]string{
	"480p":  "480*480",
	"720p":  "720*720",
	"1080p": "1080*1080",
}

var videoResolutionParam = map[string]string{
	"480p":  "480P",
	"720p":  "720P",
	"1080p": "1080P",
}

// ImageSize resolves the size parameter for image synthesis.
func ImageSize(resolution string) string {
	if size, ok := imageSizeByResolution[resolution]; ok {
		return size
	}
	return defaultImageSize
}

// VideoResolution resolves the resolution tier for video synthesis.
func VideoResolution(resolution string) string {
	if tier, ok := videoResolutionParam[resolution]; ok {
		return tier
	}
	return videoResolutionParam["720p"]
}
