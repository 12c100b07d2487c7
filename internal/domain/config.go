package domain

// KeyPrefix namespaces every key skinlab writes to the shared cache.
const KeyPrefix = "skinlab:"
