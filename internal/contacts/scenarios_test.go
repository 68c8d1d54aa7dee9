package contacts_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"contactbook/backend/internal/contacts"
	"contactbook/backend/internal/models"
	"contactbook/backend/internal/seed"
	"contactbook/backend/internal/testutil"
)

var _ = Describe("ConfirmedContacts", func() {
	var (
		db     *gorm.DB
		svc    *contacts.Service
		ctx    context.Context
		bob    models.User
		ben    models.User
		alfred models.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = testutil.NewDB(GinkgoT())
		svc = contacts.NewService(db)

		bob = testutil.NewUser(GinkgoT(), db, "Bob")
		ben = testutil.NewUser(GinkgoT(), db, "Ben")
		alfred = testutil.NewUser(GinkgoT(), db, "Alfred")
	})

	resolve := func(u models.User, p contacts.Policy) []uint {
		users, err := svc.ConfirmedContacts(ctx, u.ID, p)
		Expect(err).NotTo(HaveOccurred())
		return testutil.IDs(users)
	}

	Context("a user without any requests", func() {
		It("has no contacts under any policy", func() {
			for _, p := range contacts.Policies {
				Expect(resolve(bob, p)).To(BeEmpty())
			}
		})
	})

	Context("Bob and Ben requested each other", func() {
		BeforeEach(func() {
			_, err := svc.RequestContact(ctx, bob.ID, ben.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.RequestContact(ctx, ben.ID, bob.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		When("nothing is accepted", func() {
			It("returns no contacts for Bob under the accepted policy", func() {
				Expect(resolve(bob, contacts.PolicyAccepted)).To(BeEmpty())
			})

			It("returns each side exactly once under the bidirectional policy", func() {
				Expect(resolve(bob, contacts.PolicyBidirectional)).To(Equal([]uint{ben.ID}))
				Expect(resolve(ben, contacts.PolicyBidirectional)).To(Equal([]uint{bob.ID}))
			})
		})

		When("only Ben's request to Bob is accepted", func() {
			BeforeEach(func() {
				_, err := svc.AcceptRequest(ctx, ben.ID, bob.ID)
				Expect(err).NotTo(HaveOccurred())
			})

			It("makes Ben a contact of Bob under the accepted policy", func() {
				Expect(resolve(bob, contacts.PolicyAccepted)).To(Equal([]uint{ben.ID}))
				Expect(resolve(ben, contacts.PolicyAccepted)).To(Equal([]uint{bob.ID}))
			})

			It("does not satisfy the mutual policy", func() {
				Expect(resolve(bob, contacts.PolicyMutualAccepted)).To(BeEmpty())
			})

			It("leaves Bob's own request unaccepted", func() {
				conns, err := svc.Connections(ctx, bob.ID, contacts.DirectionOutgoing, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(conns).To(HaveLen(1))
				Expect(conns[0].Accepted).To(BeFalse())
			})
		})

		When("both requests are accepted", func() {
			BeforeEach(func() {
				_, err := svc.AcceptRequest(ctx, ben.ID, bob.ID)
				Expect(err).NotTo(HaveOccurred())
				_, err = svc.AcceptRequest(ctx, bob.ID, ben.ID)
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns Ben exactly once under every policy", func() {
				for _, p := range contacts.Policies {
					Expect(resolve(bob, p)).To(Equal([]uint{ben.ID}), string(p))
				}
			})
		})
	})

	Context("Bob requested Alfred only", func() {
		BeforeEach(func() {
			_, err := svc.RequestContact(ctx, bob.ID, alfred.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("gives Alfred no contacts under the bidirectional policy", func() {
			Expect(resolve(alfred, contacts.PolicyBidirectional)).To(BeEmpty())
		})

		It("gives Alfred no contacts under the accepted policy", func() {
			Expect(resolve(alfred, contacts.PolicyAccepted)).To(BeEmpty())
		})

		When("Alfred accepts", func() {
			It("is enough under the accepted policy but not the bidirectional one", func() {
				_, err := svc.AcceptRequest(ctx, bob.ID, alfred.ID)
				Expect(err).NotTo(HaveOccurred())

				Expect(resolve(alfred, contacts.PolicyAccepted)).To(Equal([]uint{bob.ID}))
				Expect(resolve(alfred, contacts.PolicyBidirectional)).To(BeEmpty())
			})
		})
	})
})

var _ = Describe("Demo data", func() {
	It("resolves Bob's contacts from the demo data", func() {
		ctx := context.Background()
		db := testutil.NewDB(GinkgoT())
		svc := contacts.NewService(db)

		users, err := seed.Load(ctx, db)
		Expect(err).NotTo(HaveOccurred())
		bob, ben, alfred, theo := users[0], users[1], users[2], users[3]

		got, err := svc.ConfirmedContacts(ctx, bob.ID, contacts.PolicyBidirectional)
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.IDs(got)).To(Equal([]uint{ben.ID, alfred.ID, theo.ID}))

		got, err = svc.ConfirmedContacts(ctx, bob.ID, contacts.PolicyAccepted)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})
})
