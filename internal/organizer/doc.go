// Package organizer places acquired audio files into the species-organized
// corpus. Directory names are derived canonically from the descriptor's
// scientific and common names, so descriptors that vary only in casing or
// whitespace land in the same directory.
package organizer
