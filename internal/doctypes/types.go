package doctypes

import (
	"strings"
)

// EncodingGzip is the transport encoding that triggers the ".gz" suffix rule
// during classification.
const EncodingGzip = "gzip"

// gzipSuffix is appended to every candidate extension when a filename
// carries the gzip transport encoding, producing multi-part types such as
// "tar.gz" or "ps.gz".
const gzipSuffix = ".gz"

// sepToken is the filename-safe encoding of a path separator inside a
// logical title. The scheme is lossy for titles that legitimately contain
// the literal token; that is an accepted limitation.
const sepToken = "%2f"

// mimeExtension associates a filename extension with its content type.
// Candidates for a content type are tried in the order they appear in this
// table, so the declaration order is part of the classification contract.
type mimeExtension struct {
	ext      string
	mimeType string
}

var mimeExtensions = []mimeExtension{
	{".pdf", "application/pdf"},
	{".ps", "application/postscript"},
	{".eps", "application/postscript"},
	{".ai", "application/postscript"},
	{".dvi", "application/x-dvi"},
	{".tex", "application/x-tex"},
	{".latex", "application/x-latex"},
	{".tar", "application/x-tar"},
	{".zip", "application/zip"},
	{".7z", "application/x-7z-compressed"},
	{".epub", "application/epub+zip"},
	{".mobi", "application/x-mobipocket-ebook"},
	{".prc", "application/x-mobipocket-ebook"},
	{".djvu", "image/vnd.djvu"},
	{".djv", "image/vnd.djvu"},
	{".chm", "application/vnd.ms-htmlhelp"},
	{".doc", "application/msword"},
	{".dot", "application/msword"},
	{".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	{".ppt", "application/vnd.ms-powerpoint"},
	{".pps", "application/vnd.ms-powerpoint"},
	{".pot", "application/vnd.ms-powerpoint"},
	{".pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	{".xls", "application/vnd.ms-excel"},
	{".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	{".odt", "application/vnd.oasis.opendocument.text"},
	{".odp", "application/vnd.oasis.opendocument.presentation"},
	{".ods", "application/vnd.oasis.opendocument.spreadsheet"},
	{".rtf", "application/rtf"},
	{".txt", "text/plain"},
	{".text", "text/plain"},
	{".asc", "text/plain"},
	{".md", "text/markdown"},
	{".markdown", "text/markdown"},
	{".html", "text/html"},
	{".htm", "text/html"},
	{".xml", "text/xml"},
	{".csv", "text/csv"},
	{".jpg", "image/jpeg"},
	{".jpeg", "image/jpeg"},
	{".jpe", "image/jpeg"},
	{".png", "image/png"},
	{".gif", "image/gif"},
	{".svg", "image/svg+xml"},
	{".tiff", "image/tiff"},
	{".tif", "image/tiff"},
}

// encodingSuffixes maps transport-encoding suffixes to encoding names.
// Only gzip participates in the candidate-suffix rule; the others merely
// make the inner extension visible to the content-type lookup.
var encodingSuffixes = map[string]string{
	".gz":  EncodingGzip,
	".z":   "compress",
	".bz2": "bzip2",
	".xz":  "xz",
}

var (
	// extensionTypes maps a lowercase extension to its content type.
	extensionTypes map[string]string
	// typeExtensions maps a content type to its extensions in table order.
	typeExtensions map[string][]string
)

func init() {
	extensionTypes = make(map[string]string, len(mimeExtensions))
	typeExtensions = make(map[string][]string)
	for _, me := range mimeExtensions {
		if _, ok := extensionTypes[me.ext]; !ok {
			extensionTypes[me.ext] = me.mimeType
		}
		typeExtensions[me.mimeType] = append(typeExtensions[me.mimeType], me.ext)
	}
}

// Classify splits a filename (no path) into a (title, type) pair.
//
// The filename's extension is looked up in the static content-type table,
// every extension associated with that content type is tried as a suffix
// (with ".gz" appended to each candidate when the gzip encoding applies),
// and the first match determines the type. The returned type has its
// leading dot stripped and is always lowercase.
//
// An unknown or ambiguous extension is not an error: the type is empty and
// the title is the whole filename. Callers must treat an empty type as a
// valid, low-information classification.
func Classify(filename string) (title, docType string) {
	mimeType, encoding := guessType(filename)
	if mimeType == "" {
		return filename, ""
	}

	for _, ext := range typeExtensions[mimeType] {
		if encoding == EncodingGzip {
			ext += gzipSuffix
		}
		if strings.HasSuffix(filename, ext) {
			return filename[:len(filename)-len(ext)], ext[1:]
		}
	}

	return filename, ""
}

// guessType determines the content type and optional transport encoding of
// a filename. The lookup is case-insensitive, but Classify's suffix match
// against the filename stays case-sensitive, so "REPORT.PDF" yields an
// empty type.
func guessType(filename string) (mimeType, encoding string) {
	base := filename
	if ext := lowerExt(base); ext != "" {
		if enc, ok := encodingSuffixes[ext]; ok {
			encoding = enc
			base = base[:len(base)-len(ext)]
		}
	}

	ext := lowerExt(base)
	if ext == "" {
		return "", encoding
	}
	return extensionTypes[ext], encoding
}

// lowerExt returns the lowercase extension of name including the dot.
// A leading-dot-only name (hidden file) has no extension.
func lowerExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}

// DecodeTitle converts the on-disk form of a title to its logical form,
// replacing every sepToken with a path separator.
func DecodeTitle(s string) string {
	return strings.ReplaceAll(s, sepToken, "/")
}

// EncodeTitle converts a logical title back to its on-disk form. Any
// component that maps a logical title onto a filesystem path must apply
// this before joining path segments.
func EncodeTitle(s string) string {
	return strings.ReplaceAll(s, "/", sepToken)
}

// Filename rejoins a (title, type) pair into the on-disk filename it was
// classified from. For a recognized classification this is the inverse of
// Classify combined with EncodeTitle.
func Filename(title, docType string) string {
	name := EncodeTitle(title)
	if docType == "" {
		return name
	}
	return name + "." + docType
}

// Known reports whether the extension is present in the content-type table.
// The extension should include the leading dot.
func Known(ext string) bool {
	_, ok := extensionTypes[strings.ToLower(ext)]
	return ok
}
