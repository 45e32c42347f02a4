// Package parser turns stored records into typed projects.
//
// ParseProject reads discovery and project JSON records. BuildDetail
// assembles a detail record from a GraphQL project node, and ApplyDetail
// layers a detail record over a parsed project. None of the functions
// perform I/O.
package parser
