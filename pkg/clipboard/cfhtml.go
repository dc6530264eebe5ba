package clipboard

import "fmt"

const cfHTMLHeader = "Version:0.9\r\nStartHTML:%010d\r\nEndHTML:%010d\r\nStartFragment:%010d\r\nEndFragment:%010d\r\n"

// BuildCFHTML wraps an HTML fragment in the Windows "HTML Format" envelope.
// All offsets are byte offsets into the returned string.
func BuildCFHTML(fragment string) string {
	const (
		prefix = "<html><body>\r\n<!--StartFragment-->"
		suffix = "<!--EndFragment-->\r\n</body></html>"
	)
	headerLen := len(fmt.Sprintf(cfHTMLHeader, 0, 0, 0, 0))

	startHTML := headerLen
	startFragment := startHTML + len(prefix)
	endFragment := startFragment + len(fragment)
	endHTML := endFragment + len(suffix)

	return fmt.Sprintf(cfHTMLHeader, startHTML, endHTML, startFragment, endFragment) +
		prefix + fragment + suffix
}
