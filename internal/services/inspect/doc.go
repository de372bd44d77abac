// Package inspect summarises an interchange set without touching any results
// store. The field stream is read forward once, so sets of any size can be
// checked in constant memory beyond the mesh and catalog.
package inspect
