package auth

// Claims representa la identidad extraída del token. El rol efectivo vive en
// el perfil del usuario (users); Role acá es solo el que declara el emisor.
type Claims struct {
	UserID string
	Email  string
	Role   string
}
