// Package build runs one full pass over a site: scan the content tree,
// parse every page, seal the registry, render, and write the output tree.
//
// Failures confined to a single page are recorded in the Report and the
// page is skipped; the rest of the site still builds. Only build-fatal
// failures (an unreadable content root, two pages claiming one output file,
// an unwritable build directory) are returned as an error from Build.
package build
