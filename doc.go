/*
Package relfile implements ISAM-like fixed-size record storage over a plain
file. Records are addressed by a 1-based number or found by a linear scan;
cooperating processes synchronise through advisory byte-range locks.

The stack is layered: package file wraps the descriptor, package block adds
locking with bounded retry, and package record builds the relative record
file on top of them.
*/
package relfile
