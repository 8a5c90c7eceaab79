package value

import "strings"

// PublicKey é a chave do ACL que representa qualquer usuário.
const PublicKey = "*"

const rolePrefix = "role:"

type Permission struct {
	Read  bool
	Write bool
}

// ACL mapeia principal ("*", objectId de usuário ou "role:Nome") para permissões.
type ACL map[string]Permission

func NewACL() ACL { return ACL{} }

func (a ACL) set(key string, read, write bool) ACL {
	if !read && !write {
		delete(a, key)
		return a
	}
	a[key] = Permission{Read: read, Write: write}
	return a
}

func (a ACL) SetPublic(read, write bool) ACL { return a.set(PublicKey, read, write) }

func (a ACL) SetUser(userID string, read, write bool) ACL { return a.set(userID, read, write) }

func (a ACL) SetRole(role string, read, write bool) ACL {
	return a.set(rolePrefix+strings.TrimPrefix(role, rolePrefix), read, write)
}

func (a ACL) CanRead(key string) bool  { return a[key].Read }
func (a ACL) CanWrite(key string) bool { return a[key].Write }

// Value converte o ACL para a forma de mapa enviada ao servidor.
// Permissões falsas são omitidas.
func (a ACL) Value() Value {
	fields := make(map[string]Value, len(a))
	for key, p := range a {
		perm := map[string]Value{}
		if p.Read {
			perm["read"] = Bool(true)
		}
		if p.Write {
			perm["write"] = Bool(true)
		}
		fields[key] = Object(perm)
	}
	return Object(fields)
}

// ACLFromValue lê um ACL de um Object. Entradas malformadas produzem Decode.
func ACLFromValue(v Value) (ACL, error) {
	fields, err := v.AsObject()
	if err != nil {
		return nil, err
	}
	acl := make(ACL, len(fields))
	for key, raw := range fields {
		perm, err := raw.AsObject()
		if err != nil {
			return nil, err
		}
		var p Permission
		if r, ok := perm["read"]; ok {
			if p.Read, err = r.AsBool(); err != nil {
				return nil, err
			}
		}
		if w, ok := perm["write"]; ok {
			if p.Write, err = w.AsBool(); err != nil {
				return nil, err
			}
		}
		acl[key] = p
	}
	return acl, nil
}
