package epub

import (
	"strings"

	"epr/archive"
)

const (
	containerPath    = "META-INF/container.xml"
	packageMediaType = "application/oebps-package+xml"
)

// findPackagePath reads container descriptor and returns archive path of the
// package document. The first rootfile of package media type wins, otherwise
// the first non-empty one.
func findPackagePath(arc *archive.Archive) (string, error) {
	data, err := arc.ReadFile(containerPath)
	if err != nil {
		return "", &PackageError{Kind: PackageErrorKindMissingContainer, Path: containerPath, Err: err}
	}
	doc, err := readXML(data)
	if err != nil {
		return "", &PackageError{Kind: PackageErrorKindMissingContainer, Path: containerPath, Err: err}
	}

	var first string
	for _, rf := range doc.FindElements("//rootfile") {
		full := strings.TrimSpace(rf.SelectAttrValue("full-path", ""))
		if full == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.SelectAttrValue("media-type", "")), packageMediaType) {
			return full, nil
		}
		if first == "" {
			first = full
		}
	}
	if first == "" {
		return "", newPackageError(PackageErrorKindMissingContainer, containerPath, "no rootfile declared")
	}
	return first, nil
}
