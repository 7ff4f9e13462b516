// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package access

import (
	"github.com/vechain/compounder/builtin/reverts"
	"github.com/vechain/compounder/builtin/solidity"
	"github.com/vechain/compounder/thor"
	"github.com/vechain/compounder/tx"
	"github.com/vechain/compounder/xenv"
)

var (
	// DefaultAdminRole administers every other role, itself included.
	DefaultAdminRole = thor.Bytes32{}
	OperatorRole     = thor.Keccak256([]byte("OPERATOR_ROLE"))
)

type roleKey struct {
	role    thor.Bytes32
	account thor.Address
}

func (k roleKey) Bytes() []byte {
	return append(append(make([]byte, 0, 52), k.role[:]...), k.account[:]...)
}

// Roles is a registry of role memberships.
type Roles struct {
	contract thor.Address
	members  *solidity.Mapping[roleKey, bool]
}

func NewRoles(sctx *solidity.Context) *Roles {
	return &Roles{
		contract: sctx.Address(),
		members:  solidity.NewMapping[roleKey, bool](sctx, solidity.Slot("roles")),
	}
}

func (r *Roles) HasRole(role thor.Bytes32, account thor.Address) (bool, error) {
	return r.members.Get(roleKey{role, account})
}

// CheckRole fails unless the caller holds role.
func (r *Roles) CheckRole(env *xenv.Environment, role thor.Bytes32) error {
	ok, err := r.HasRole(role, env.Caller())
	if err != nil {
		return err
	}
	if !ok {
		return reverts.Newf("AccessControl: account %s is missing role %s", env.Caller(), role)
	}
	return nil
}

// For returns an Authorizer that requires role.
func (r *Roles) For(role thor.Bytes32) Authorizer {
	return AuthorizerFunc(func(env *xenv.Environment) error {
		return r.CheckRole(env, role)
	})
}

// Setup grants role without checking the caller. Used at deployment.
func (r *Roles) Setup(env *xenv.Environment, role thor.Bytes32, account thor.Address) error {
	return r.grant(env, role, account)
}

func (r *Roles) GrantRole(env *xenv.Environment, role thor.Bytes32, account thor.Address) error {
	if err := r.CheckRole(env, DefaultAdminRole); err != nil {
		return err
	}
	return r.grant(env, role, account)
}

func (r *Roles) RevokeRole(env *xenv.Environment, role thor.Bytes32, account thor.Address) error {
	if err := r.CheckRole(env, DefaultAdminRole); err != nil {
		return err
	}
	ok, err := r.HasRole(role, account)
	if err != nil || !ok {
		return err
	}
	r.members.Delete(roleKey{role, account})
	env.Log(r.contract, "RoleRevoked", []thor.Bytes32{role, tx.AddressTopic(account), tx.AddressTopic(env.Caller())})
	logger.Debug("role revoked", "contract", r.contract, "role", role, "account", account)
	return nil
}

func (r *Roles) grant(env *xenv.Environment, role thor.Bytes32, account thor.Address) error {
	ok, err := r.HasRole(role, account)
	if err != nil || ok {
		return err
	}
	if err := r.members.Set(roleKey{role, account}, true); err != nil {
		return err
	}
	env.Log(r.contract, "RoleGranted", []thor.Bytes32{role, tx.AddressTopic(account), tx.AddressTopic(env.Caller())})
	logger.Debug("role granted", "contract", r.contract, "role", role, "account", account)
	return nil
}
