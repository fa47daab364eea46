package fs

// Category is the coarse content class of a file derived from its extension.
type Category int

const (
	CategoryOther Category = iota
	CategoryImage
	CategoryVideo
	CategoryAudio
	CategoryDocument
	CategoryArchive
)

func (c Category) String() string {
	switch c {
	case CategoryImage:
		return "image"
	case CategoryVideo:
		return "video"
	case CategoryAudio:
		return "audio"
	case CategoryDocument:
		return "document"
	case CategoryArchive:
		return "archive"
	default:
		return "other"
	}
}

// extensionCategories is consulted once per entry at construction.
var extensionCategories = map[string]Category{
	"jpg": CategoryImage, "jpeg": CategoryImage, "png": CategoryImage, "gif": CategoryImage,
	"bmp": CategoryImage, "webp": CategoryImage, "tiff": CategoryImage, "svg": CategoryImage,

	"mp4": CategoryVideo, "avi": CategoryVideo, "mkv": CategoryVideo, "mov": CategoryVideo,
	"wmv": CategoryVideo, "flv": CategoryVideo, "webm": CategoryVideo, "m4v": CategoryVideo,

	"mp3": CategoryAudio, "wav": CategoryAudio, "flac": CategoryAudio, "aac": CategoryAudio,
	"ogg": CategoryAudio, "wma": CategoryAudio, "m4a": CategoryAudio,

	"pdf": CategoryDocument, "doc": CategoryDocument, "docx": CategoryDocument,
	"xls": CategoryDocument, "xlsx": CategoryDocument, "ppt": CategoryDocument,
	"pptx": CategoryDocument, "txt": CategoryDocument, "rtf": CategoryDocument,
	"odt": CategoryDocument, "ods": CategoryDocument, "odp": CategoryDocument,

	"zip": CategoryArchive, "rar": CategoryArchive, "7z": CategoryArchive, "tar": CategoryArchive,
	"gz": CategoryArchive, "bz2": CategoryArchive, "xz": CategoryArchive, "lzma": CategoryArchive,
}

// CategoryForExtension returns the category for a lowercase extension without the dot.
func CategoryForExtension(ext string) Category {
	return extensionCategories[ext]
}
