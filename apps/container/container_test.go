package container

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/chat"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/payment"
	"github.com/sadhanaschool/backend/core/user"
	"github.com/sadhanaschool/backend/testutil"
)

func newMemoryContainer(t *testing.T, conf *core.Config) *Container {
	t.Helper()
	c, err := New(context.Background(), conf, testutil.Logger(conf), Options{Migrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_memory(t *testing.T) {
	c := newMemoryContainer(t, testutil.Config())
	ctx := context.Background()

	assert.Nil(t, c.DB)
	require.NoError(t, c.Seed(ctx))
	require.NoError(t, c.Seed(ctx), "seeding twice keeps the existing rows")

	classes, err := c.Academic.ListClasses(ctx, core.NewPage(core.MaxPageLimit, 0))
	require.NoError(t, err)
	assert.Len(t, classes, 10)

	admin, err := c.Users.SaveAdmin(ctx, "Principal", user.PasswordReset{Email: "Principal@School.test", Password: "Tr1angle$Maple9"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.Equal(t, "principal@school.test", admin.Email)

	assert.NotEmpty(t, c.Bot.Reply(chat.Message{Message: "when are the fees due?"}).Response)
}

func TestNew_paymentsDisabled(t *testing.T) {
	conf := testutil.Config()
	conf.Razorpay.KeyID = ""
	conf.Razorpay.KeySecret = ""
	c := newMemoryContainer(t, conf)

	_, err := c.Fees.CreateOrder(context.Background(), fees.OrderRequest{Amount: 10, TrackingID: "ft_1"})
	assert.Equal(t, payment.ErrGatewayNotConfigured, errors.Cause(err))
}
