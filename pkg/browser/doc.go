// Package browser renders pages in headless Chrome via go-rod, with the
// go-rod/stealth patches applied to every tab. It is the last resort of the
// HTML fetch path when plain requests are refused.
package browser
