// Command warbler collects regional bird audio from the Xeno-canto catalog
// into a species-organized corpus.
package main
