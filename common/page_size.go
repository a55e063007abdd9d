package common

// PageSize is the fixed size, in bytes, of every page in the system: the
// pedagogical 4096-byte default rather than InnoDB's 16 KiB.
const PageSize = 4096
