package domainid

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"cartpole":                    CartPoleBalanceOriginal,
		"CartPole":                    CartPoleBalanceOriginal,
		"cart_pole":                   CartPoleBalanceOriginal,
		"cart_pole_balance_original":  CartPoleBalanceOriginal,
		"domain_cartpole_sim":         CartPoleBalanceOriginal,
		"cartpole-balance-original":   CartPoleBalanceOriginal,
		"cart pole balance modern":    CartPoleBalanceModern,
		"CartPoleBalanceModern":       CartPoleBalanceModern,
		"cartpole_modern":             CartPoleBalanceModern,
		"PST":                         PST,
		"pst_sim":                     PST,
		"uav":                         PST,
		"persistent_search_and_track": PST,
		"domain-pst":                  PST,
		"acrobot":                     "acrobot",
		"custom_sim":                  "custom-sim",
		"  ":                          "",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("normalize(%q)=%q want=%q", in, got, want)
		}
	}
}
