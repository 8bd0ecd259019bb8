package service

import "errors"

// Resultados predecibles del matching. Se devuelven como valores y el
// adapter los traduce a mensajes; nada de esto es fatal.
var (
	// El requester (o un amigo) ya está sentado en otra mesa activa, en
	// cualquier guild.
	ErrAlreadyInGame = errors.New("already in a game")
	// El grupo no entra en la capacidad pedida.
	ErrOversizedGroup = errors.New("group exceeds table seats")
	// Join explícito contra una mesa con alguien bloqueado.
	ErrBlockedPairing = errors.New("blocked pairing")
	// El message ref ya no corresponde a una mesa viva.
	ErrMessageMismatch = errors.New("message does not match a live game")
	// Leave/report contra una mesa donde el user no está sentado.
	ErrNotInGame = errors.New("not in that game")
	// Contención transaccional más allá de los reintentos acotados.
	ErrStoreConflict = errors.New("store conflict, try again")
)
