package gerber

// Parse reads and interprets the Gerber file at path, returning the
// resulting Image. A non-nil error is always a *FatalError wrapping the
// partial Image (spec.md §7): every recoverable condition is instead
// recorded as a Message on the returned Image, which callers should inspect
// via Messages()/HasErrors() even on a nil error.
func Parse(path string) (*Image, error) {
	scanner, err := NewScanner(path)
	if err != nil {
		img := newImage()
		return img, newFatalError(img, err, "opening "+path)
	}
	defer scanner.Close()

	img := newImage()
	ip := NewInterpreter(scanner, img)
	if err := ip.Run(); err != nil {
		return img, err
	}
	return img, nil
}
